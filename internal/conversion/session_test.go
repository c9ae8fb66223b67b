package conversion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/flicksplit/internal/exchange"
	"github.com/mmynk/flicksplit/internal/metrics"
	"github.com/mmynk/flicksplit/internal/models"
)

// fakeRates answers from a table. When gate is set, each call blocks until a
// value is sent on it.
type fakeRates struct {
	mu      sync.Mutex
	rates   map[string]float64
	err     error
	calls   []string
	started chan struct{}
	gate    chan struct{}
}

func (f *fakeRates) GetRate(ctx context.Context, from, to string) (float64, error) {
	f.mu.Lock()
	f.calls = append(f.calls, from+"->"+to)
	rate, ok := f.rates[from+"->"+to]
	err := f.err
	started, gate := f.started, f.gate
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, exchange.ErrRateNotFound
	}
	return rate, nil
}

func (f *fakeRates) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newFake() *fakeRates {
	return &fakeRates{rates: map[string]float64{
		"USD->EUR": 0.92,
		"EUR->USD": 1.087,
		"USD->GBP": 0.79,
	}}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func pairSession(t *testing.T, rates exchange.RateSource, from, to string, opts ...Option) *Session {
	t.Helper()
	s := NewSession(rates, opts...)
	require.NoError(t, s.SelectOriginal(from))
	require.NoError(t, s.SelectTarget(to))
	return s
}

func TestSession_Initial(t *testing.T) {
	s := NewSession(newFake())
	st := s.State()
	assert.Equal(t, Idle, st.Status)
	assert.Empty(t, st.OriginalCurrency)
	assert.Empty(t, st.TargetCurrency)
	assert.Equal(t, 1.0, st.Rate)
	assert.False(t, st.Loading)
	assert.Equal(t, PickerNone, st.PickerOpen)
	assert.Nil(t, s.Conversion())
}

func TestSession_InitialCurrency(t *testing.T) {
	s := NewSession(newFake(), WithOriginalCurrency("EUR"))
	assert.Equal(t, "EUR", s.State().OriginalCurrency)

	s = NewSession(newFake(), WithOriginalCurrency("XYZ"))
	assert.Empty(t, s.State().OriginalCurrency)
}

func TestSession_ConfirmSuccess(t *testing.T) {
	fake := newFake()
	s := pairSession(t, fake, "USD", "EUR")
	assert.Equal(t, PairSelected, s.State().Status)

	require.NoError(t, s.Confirm(context.Background()))

	st := s.State()
	assert.Equal(t, RateReady, st.Status)
	assert.Equal(t, 0.92, st.Rate)
	assert.True(t, st.RateValid)
	assert.False(t, st.Loading)
	assert.Nil(t, st.Failure)

	conv := s.Conversion()
	require.NotNil(t, conv)
	assert.Equal(t, models.Conversion{From: "USD", To: "EUR", Rate: 0.92}, *conv)
	assert.InDelta(t, 67.896, conv.Apply(73.8), 1e-9)
}

func TestSession_ConfirmValidation(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		wantErr error
		message string
	}{
		{"nothing selected", "", "", ErrMissingCurrency, "Please select both currencies"},
		{"only original", "USD", "", ErrMissingCurrency, "Please select both currencies"},
		{"only target", "", "EUR", ErrMissingCurrency, "Please select both currencies"},
		{"same currency", "USD", "USD", ErrSameCurrency, "Please select different currencies for conversion"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFake()
			s := NewSession(fake)
			if tt.from != "" {
				require.NoError(t, s.SelectOriginal(tt.from))
			}
			if tt.to != "" {
				require.NoError(t, s.SelectTarget(tt.to))
			}
			before := s.State()

			err := s.Confirm(context.Background())
			require.ErrorIs(t, err, tt.wantErr)

			alert, ok := AlertFor(err)
			require.True(t, ok)
			assert.Equal(t, "Error", alert.Title)
			assert.Equal(t, tt.message, alert.Message)

			assert.Equal(t, before, s.State(), "validation must not change state")
			assert.Zero(t, fake.callCount(), "validation must not fetch")
		})
	}
}

func TestSession_ConfirmFailure(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     FailureKind
		title    string
		message  string
		wantBase error
	}{
		{
			name:     "offline",
			err:      fmt.Errorf("%w: dial tcp: connection refused", exchange.ErrNetworkUnavailable),
			kind:     FailureOffline,
			title:    "No Internet",
			message:  "Currency conversion requires an internet connection. Please check your connection and try again.",
			wantBase: exchange.ErrNetworkUnavailable,
		},
		{
			name:     "service error",
			err:      fmt.Errorf("%w: http 500", exchange.ErrService),
			kind:     FailureGeneric,
			title:    "Conversion Error",
			message:  "Unable to get exchange rate. Please try again.",
			wantBase: exchange.ErrService,
		},
		{
			name:     "rate not found",
			err:      exchange.ErrRateNotFound,
			kind:     FailureGeneric,
			title:    "Conversion Error",
			message:  "Conversion from USD to EUR is not available. Please choose another currency.",
			wantBase: exchange.ErrRateNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFake()
			s := pairSession(t, fake, "USD", "EUR")
			require.NoError(t, s.Confirm(context.Background()))

			fake.err = tt.err
			err := s.Confirm(context.Background())

			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			assert.ErrorIs(t, err, tt.wantBase)
			assert.Equal(t, tt.kind, fe.Kind)
			assert.Equal(t, tt.title, fe.Alert.Title)
			assert.Equal(t, tt.message, fe.Alert.Message)

			st := s.State()
			assert.Equal(t, FetchFailed, st.Status)
			assert.Equal(t, 1.0, st.Rate, "failed fetch must reset the rate")
			assert.False(t, st.RateValid)
			assert.False(t, st.Loading)
			require.NotNil(t, st.Failure)
			assert.Nil(t, s.Conversion())
		})
	}
}

func TestSession_RetryAfterFailure(t *testing.T) {
	fake := newFake()
	fake.err = exchange.ErrNetworkUnavailable
	s := pairSession(t, fake, "USD", "EUR")
	require.Error(t, s.Confirm(context.Background()))

	fake.err = nil
	require.NoError(t, s.Confirm(context.Background()))
	assert.Equal(t, RateReady, s.State().Status)
	assert.Equal(t, 0.92, s.State().Rate)
}

func TestSession_SelectionResetsRate(t *testing.T) {
	s := pairSession(t, newFake(), "USD", "EUR")
	require.NoError(t, s.Confirm(context.Background()))

	// reselecting the same code keeps the rate
	require.NoError(t, s.SelectTarget("EUR"))
	assert.Equal(t, RateReady, s.State().Status)

	require.NoError(t, s.SelectTarget("GBP"))
	st := s.State()
	assert.Equal(t, PairSelected, st.Status)
	assert.Equal(t, 1.0, st.Rate)
	assert.Nil(t, s.Conversion())

	// going back does not resurrect the old rate
	require.NoError(t, s.SelectTarget("EUR"))
	assert.Equal(t, PairSelected, s.State().Status)
	assert.Equal(t, 1.0, s.State().Rate)
}

func TestSession_IdentityRate(t *testing.T) {
	s := pairSession(t, newFake(), "USD", "EUR")
	require.NoError(t, s.Confirm(context.Background()))
	require.NoError(t, s.SelectTarget("USD"))
	assert.Equal(t, 1.0, s.State().Rate)
	assert.Nil(t, s.Conversion())
}

func TestSession_UnknownCurrency(t *testing.T) {
	s := NewSession(newFake())
	err := s.SelectOriginal("XYZ")
	require.ErrorIs(t, err, ErrUnknownCurrency)
	alert, ok := AlertFor(err)
	require.True(t, ok)
	assert.Contains(t, alert.Message, "XYZ")
	assert.Empty(t, s.State().OriginalCurrency)
}

func TestSession_Swap(t *testing.T) {
	fake := newFake()
	s := pairSession(t, fake, "USD", "EUR")
	require.NoError(t, s.Confirm(context.Background()))

	require.NoError(t, s.Swap())
	st := s.State()
	assert.Equal(t, "EUR", st.OriginalCurrency)
	assert.Equal(t, "USD", st.TargetCurrency)
	assert.Equal(t, 0.92, st.Rate, "swap keeps the stored rate")
	assert.False(t, st.RateValid, "stored rate is not valid for the reversed pair")
	assert.Equal(t, PairSelected, st.Status)
	assert.Nil(t, s.Conversion())
	assert.Equal(t, 1, fake.callCount(), "swap must not fetch")

	require.NoError(t, s.Swap())
	st = s.State()
	assert.Equal(t, "USD", st.OriginalCurrency)
	assert.Equal(t, "EUR", st.TargetCurrency)
	assert.Equal(t, 0.92, st.Rate)
	assert.Equal(t, RateReady, st.Status)
	assert.NotNil(t, s.Conversion())

	// swapped pair gets its own rate on confirm
	require.NoError(t, s.Swap())
	require.NoError(t, s.Confirm(context.Background()))
	assert.Equal(t, 1.087, s.State().Rate)
}

func TestSession_SwapPartial(t *testing.T) {
	s := NewSession(newFake())
	require.NoError(t, s.SelectOriginal("USD"))
	require.NoError(t, s.Swap())
	st := s.State()
	assert.Empty(t, st.OriginalCurrency)
	assert.Equal(t, "USD", st.TargetCurrency)
	assert.Equal(t, Idle, st.Status)
}

func TestSession_Pickers(t *testing.T) {
	s := NewSession(newFake())
	assert.Nil(t, s.Options())
	assert.False(t, s.SetSearch("eu"), "search needs an open picker")
	assert.ErrorIs(t, s.Choose("EUR"), ErrNoPickerOpen)

	s.OpenPicker(PickerOriginal)
	assert.Equal(t, PickerOriginal, s.State().PickerOpen)
	assert.Len(t, s.Options(), s.dir.Len())

	require.True(t, s.SetSearch("euro"))
	assert.Equal(t, "euro", s.State().OriginalSearch)
	opts := s.Options()
	require.NotEmpty(t, opts)
	assert.Equal(t, "EUR", opts[0].Code)

	// opening the other picker closes this one and clears its search
	s.OpenPicker(PickerTarget)
	st := s.State()
	assert.Equal(t, PickerTarget, st.PickerOpen)
	assert.Empty(t, st.OriginalSearch)

	require.True(t, s.SetSearch("pound"))
	require.NoError(t, s.Choose("GBP"))
	st = s.State()
	assert.Equal(t, "GBP", st.TargetCurrency)
	assert.Equal(t, PickerNone, st.PickerOpen)
	assert.Empty(t, st.TargetSearch)

	s.OpenPicker(PickerOriginal)
	s.SetSearch("yen")
	s.ClosePicker()
	st = s.State()
	assert.Equal(t, PickerNone, st.PickerOpen)
	assert.Empty(t, st.OriginalSearch)
	assert.Empty(t, st.OriginalCurrency, "closing does not select")

	s.OpenPicker(PickerOriginal)
	s.SetSearch("zzzz")
	assert.Empty(t, s.Options())
}

func TestSession_FetchInFlight(t *testing.T) {
	fake := newFake()
	fake.started = make(chan struct{}, 1)
	fake.gate = make(chan struct{})
	s := pairSession(t, fake, "USD", "EUR")

	done := make(chan error, 1)
	go func() { done <- s.Confirm(context.Background()) }()
	<-fake.started

	st := s.State()
	assert.Equal(t, Fetching, st.Status)
	assert.True(t, st.Loading)
	assert.ErrorIs(t, s.Confirm(context.Background()), ErrFetchInFlight)

	close(fake.gate)
	require.NoError(t, <-done)
	assert.Equal(t, RateReady, s.State().Status)
	assert.Equal(t, 1, fake.callCount())
}

func TestSession_LateResultDiscarded(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	fake := newFake()
	fake.started = make(chan struct{}, 1)
	fake.gate = make(chan struct{})
	s := pairSession(t, fake, "USD", "EUR", WithMetrics(m))

	done := make(chan error, 1)
	go func() { done <- s.Confirm(context.Background()) }()
	<-fake.started

	// user changes the pair while USD->EUR is loading
	require.NoError(t, s.SelectTarget("GBP"))
	assert.False(t, s.State().Loading)

	close(fake.gate)
	assert.ErrorIs(t, <-done, ErrSuperseded)

	st := s.State()
	assert.Equal(t, "GBP", st.TargetCurrency)
	assert.Equal(t, 1.0, st.Rate, "USD->EUR rate must not apply to USD->GBP")
	assert.Equal(t, PairSelected, st.Status)
	assert.Equal(t, 1.0, counterValue(t, reg, "flicksplit_rate_result_discarded_total"))

	// a fresh confirm works normally
	fake.started = nil
	fake.gate = nil
	require.NoError(t, s.Confirm(context.Background()))
	assert.Equal(t, 0.79, s.State().Rate)
}

func TestSession_SwapDuringFetch(t *testing.T) {
	fake := newFake()
	fake.started = make(chan struct{}, 1)
	fake.gate = make(chan struct{})
	s := pairSession(t, fake, "USD", "EUR")

	done := make(chan error, 1)
	go func() { done <- s.Confirm(context.Background()) }()
	<-fake.started
	require.NoError(t, s.Swap())
	close(fake.gate)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.False(t, s.State().RateValid)
	assert.Nil(t, s.Conversion())
}

func TestSession_Close(t *testing.T) {
	fake := newFake()
	fake.started = make(chan struct{}, 1)
	fake.gate = make(chan struct{})
	s := pairSession(t, fake, "USD", "EUR")

	done := make(chan error, 1)
	go func() { done <- s.Confirm(context.Background()) }()
	<-fake.started

	s.Close()
	close(fake.gate)
	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.False(t, s.State().RateValid)

	assert.ErrorIs(t, s.Confirm(context.Background()), ErrClosed)
	assert.ErrorIs(t, s.SelectTarget("GBP"), ErrClosed)
	assert.ErrorIs(t, s.Swap(), ErrClosed)
	s.Close()
}

func TestSession_ContextCancel(t *testing.T) {
	fake := newFake()
	fake.gate = make(chan struct{})
	s := pairSession(t, fake, "USD", "EUR")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Confirm(ctx)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, FailureGeneric, fe.Kind)
	assert.False(t, s.State().Loading)
}

func TestAlertFor(t *testing.T) {
	_, ok := AlertFor(nil)
	assert.False(t, ok)
	_, ok = AlertFor(ErrSuperseded)
	assert.False(t, ok)
	alert, ok := AlertFor(ErrFetchInFlight)
	assert.True(t, ok)
	assert.NotEmpty(t, alert.Message)
}

func TestConversion_Active(t *testing.T) {
	var nilConv *models.Conversion
	assert.False(t, nilConv.Active())
	assert.Equal(t, 10.0, nilConv.Apply(10))
	assert.False(t, (&models.Conversion{From: "USD", To: "USD", Rate: 1}).Active())
	assert.True(t, (&models.Conversion{From: "USD", To: "EUR", Rate: 0.92}).Active())
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "rate_ready", RateReady.String())
	assert.Equal(t, "fetch_failed", FetchFailed.String())
	assert.Equal(t, "target", PickerTarget.String())
}
