package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/flicksplit/internal/config"
	"github.com/mmynk/flicksplit/internal/exchange"
)

type fixedRates map[string]float64

func (f fixedRates) GetRate(_ context.Context, from, to string) (float64, error) {
	rate, ok := f[from+"->"+to]
	if !ok {
		return 0, exchange.ErrRateNotFound
	}
	return rate, nil
}

const billJSON = `{
  "bill": {"restaurant": "Luigi's", "subtotal": 100, "tax": 8, "tip": 15, "total": 123,
           "currency_symbol": "$",
           "items": [{"name": "Pizza", "price": 60}, {"name": "Salad", "price": 40}]},
  "assignment": {"guests": ["Alice", "Bob"], "items": {"0": "Alice", "1": "Bob"}}
}`

// run executes the CLI with a throwaway database and config.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DB_PATH", filepath.Join(dir, "history.db"))
	t.Setenv("FLICKSPLIT_CONFIG", "")
	t.Setenv("LOG_LEVEL", "error")

	a := &app{newRates: func(*config.Config) (exchange.RateSource, error) {
		return fixedRates{"USD->EUR": 0.92}, nil
	}}
	cmd := newRootCmdWith(a)

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestCurrencies(t *testing.T) {
	out, _, err := run(t, "", "currencies", "euro")
	require.NoError(t, err)
	assert.Contains(t, out, "EUR (€) Euro")

	_, _, err = run(t, "", "currencies", "nothing-like-this")
	assert.Error(t, err)
}

func TestRate(t *testing.T) {
	out, _, err := run(t, "", "rate", "usd", "eur", "--amount", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "1 USD = 0.9200 EUR")
	assert.Contains(t, out, "$10.00 = €9.20")
}

func TestRate_Errors(t *testing.T) {
	_, _, err := run(t, "", "rate", "USD", "USD")
	require.Error(t, err)
	var buf bytes.Buffer
	printError(&buf, err)
	assert.Equal(t, "Error: Please select different currencies for conversion\n", buf.String())

	_, _, err = run(t, "", "rate", "USD", "GBP")
	require.Error(t, err)
	buf.Reset()
	printError(&buf, err)
	assert.Contains(t, buf.String(), "Conversion from USD to GBP is not available")
}

func TestSplit(t *testing.T) {
	out, _, err := run(t, billJSON, "split", "--bill", "-", "--venmo", "@sam")
	require.NoError(t, err)
	assert.Contains(t, out, "Alice owes $73.80")
	assert.Contains(t, out, "Bob owes $49.20")
	assert.Contains(t, out, "https://venmo.com/u/sam")
}

func TestSplit_Converted(t *testing.T) {
	out, _, err := run(t, billJSON, "split", "--bill", "-", "--to", "EUR")
	require.NoError(t, err)
	assert.Contains(t, out, "Alice owes €67.90")
	assert.Contains(t, out, "USD to EUR @ 0.9200")
}

func TestSplit_UnknownCurrency(t *testing.T) {
	for _, args := range [][]string{
		{"split", "--bill", "-", "--from", "XXX", "--to", "EUR"},
		{"split", "--bill", "-", "--to", "XXX"},
	} {
		out, _, err := run(t, billJSON, args...)
		require.Error(t, err, args)
		assert.Empty(t, out)
		var buf bytes.Buffer
		printError(&buf, err)
		assert.Equal(t, "Error: Unknown currency: XXX\n", buf.String())
	}
}

func TestSplit_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bill.json")
	require.NoError(t, os.WriteFile(path, []byte(billJSON), 0o644))

	out, _, err := run(t, "", "split", "--bill", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Split between 2 people")
}

func TestSplit_NoGuests(t *testing.T) {
	_, _, err := run(t, `{"bill": {"subtotal": 1, "total": 1, "items": [{"name": "A", "price": 1}]}}`, "split", "--bill", "-")
	require.Error(t, err)
	var buf bytes.Buffer
	printError(&buf, err)
	assert.Equal(t, "No Data: There are no guests to share information about.\n", buf.String())
}

func TestSplit_SaveAndHistory(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "history.db")

	a := &app{newRates: defaultRates}
	exec := func(stdin string, args ...string) (string, string, error) {
		t.Setenv("DB_PATH", db)
		t.Setenv("LOG_LEVEL", "error")
		cmd := newRootCmdWith(a)
		var stdout, stderr bytes.Buffer
		cmd.SetOut(&stdout)
		cmd.SetErr(&stderr)
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetArgs(args)
		err := cmd.ExecuteContext(context.Background())
		return stdout.String(), stderr.String(), err
	}

	_, stderr, err := exec(billJSON, "split", "--bill", "-", "--save")
	require.NoError(t, err)
	require.Contains(t, stderr, "Saved bill ")
	id := strings.TrimSpace(strings.TrimPrefix(stderr[strings.Index(stderr, "Saved bill "):], "Saved bill "))

	out, _, err := exec("", "history")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "Luigi's")
	assert.Contains(t, out, "123.00")

	out, _, err = exec("", "history", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Alice owes $73.80")

	_, _, err = exec("", "history", "delete", id)
	require.NoError(t, err)

	out, _, err = exec("", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved bills.")
}
