// Package currency provides the static currency directory used for pickers,
// exchange rate lookups and amount formatting.
package currency

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultSymbol is shown for codes the directory does not know.
const DefaultSymbol = "$"

//go:embed currencies.yaml
var currenciesYAML []byte

// Entry is one currency known to the directory.
type Entry struct {
	Code   string `yaml:"code" json:"code"`
	Symbol string `yaml:"symbol" json:"symbol"`
	Name   string `yaml:"name" json:"name"`
}

// Directory is an immutable lookup table of currencies.
// It is safe for concurrent use.
type Directory struct {
	entries []Entry
	byCode  map[string]int
}

// NewDirectory builds a directory from entries, keeping their order.
// Codes must be non-empty and unique.
func NewDirectory(entries []Entry) (*Directory, error) {
	d := &Directory{
		entries: make([]Entry, 0, len(entries)),
		byCode:  make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if e.Code == "" {
			return nil, fmt.Errorf("currency entry with empty code (name %q)", e.Name)
		}
		if _, exists := d.byCode[e.Code]; exists {
			return nil, fmt.Errorf("duplicate currency code %q", e.Code)
		}
		d.byCode[e.Code] = len(d.entries)
		d.entries = append(d.entries, e)
	}
	return d, nil
}

// Parse decodes a YAML list of {code, symbol, name} entries.
func Parse(data []byte) (*Directory, error) {
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse currency table: %w", err)
	}
	return NewDirectory(entries)
}

var (
	defaultOnce sync.Once
	defaultDir  *Directory
)

// Default returns the directory built from the embedded table.
// The table is parsed once per process.
func Default() *Directory {
	defaultOnce.Do(func() {
		d, err := Parse(currenciesYAML)
		if err != nil {
			panic(err) // embedded data is validated by tests
		}
		defaultDir = d
	})
	return defaultDir
}

// Lookup returns the entry for code, if known.
func (d *Directory) Lookup(code string) (Entry, bool) {
	i, ok := d.byCode[code]
	if !ok {
		return Entry{}, false
	}
	return d.entries[i], true
}

// Contains reports whether code is selectable.
func (d *Directory) Contains(code string) bool {
	_, ok := d.byCode[code]
	return ok
}

// Resolve never fails: unknown codes come back as an entry that displays the
// raw code with DefaultSymbol.
func (d *Directory) Resolve(code string) Entry {
	if e, ok := d.Lookup(code); ok {
		return e
	}
	return Entry{Code: code, Symbol: DefaultSymbol, Name: code}
}

// Symbol returns the display symbol for code, DefaultSymbol if unknown.
func (d *Directory) Symbol(code string) string {
	return d.Resolve(code).Symbol
}

// All returns a copy of every entry in table order.
func (d *Directory) All() []Entry {
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Len returns the number of entries.
func (d *Directory) Len() int {
	return len(d.entries)
}

// Search returns the entries whose code, symbol or name contains query,
// ignoring case, in table order. An empty query matches everything.
// The result is a fresh slice, so callers may search again at any time.
func (d *Directory) Search(query string) []Entry {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []Entry{}
	for _, e := range d.entries {
		if q == "" ||
			strings.Contains(strings.ToLower(e.Code), q) ||
			strings.Contains(strings.ToLower(e.Symbol), q) ||
			strings.Contains(strings.ToLower(e.Name), q) {
			out = append(out, e)
		}
	}
	return out
}

// Label formats code as "EUR (€)", or the raw code when unknown.
func (d *Directory) Label(code string) string {
	e, ok := d.Lookup(code)
	if !ok {
		return code
	}
	return fmt.Sprintf("%s (%s)", e.Code, e.Symbol)
}

// Full formats code as "EUR (€) Euro", or the raw code when unknown.
func (d *Directory) Full(code string) string {
	e, ok := d.Lookup(code)
	if !ok {
		return code
	}
	return fmt.Sprintf("%s (%s) %s", e.Code, e.Symbol, e.Name)
}
