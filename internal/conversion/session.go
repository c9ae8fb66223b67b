// Package conversion owns the currency conversion state of one bill-viewing
// session: the selected pair, the picker that is open, the last fetched rate
// and whether a fetch is in flight.
//
// A Session is safe for concurrent use. At most one rate fetch runs at a time;
// a result that arrives after the pair changed or the session closed is
// dropped, keyed by a request token that increases on every such change.
package conversion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mmynk/flicksplit/internal/currency"
	"github.com/mmynk/flicksplit/internal/exchange"
	"github.com/mmynk/flicksplit/internal/metrics"
	"github.com/mmynk/flicksplit/internal/models"
)

var (
	ErrMissingCurrency = errors.New("both currencies must be selected")
	ErrSameCurrency    = errors.New("currencies must differ")
	ErrUnknownCurrency = errors.New("unknown currency")
	ErrNoPickerOpen    = errors.New("no currency picker is open")
	ErrFetchInFlight   = errors.New("exchange rate fetch already in progress")
	ErrSuperseded      = errors.New("exchange rate result no longer relevant")
	ErrClosed          = errors.New("conversion session closed")
)

// Status is the externally visible state of a session.
type Status int

const (
	// Idle means at least one currency is unselected.
	Idle Status = iota
	// PairSelected means both currencies are set and no valid rate is held for them.
	PairSelected
	// Fetching means a rate request is in flight.
	Fetching
	// RateReady means the stored rate was fetched for the current pair.
	RateReady
	// FetchFailed means the last fetch for the current pair failed.
	FetchFailed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case PairSelected:
		return "pair_selected"
	case Fetching:
		return "fetching"
	case RateReady:
		return "rate_ready"
	case FetchFailed:
		return "fetch_failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Picker identifies which currency list is open.
type Picker int

const (
	PickerNone Picker = iota
	PickerOriginal
	PickerTarget
)

func (p Picker) String() string {
	switch p {
	case PickerOriginal:
		return "original"
	case PickerTarget:
		return "target"
	default:
		return "none"
	}
}

type pair struct{ from, to string }

func (p pair) complete() bool { return p.from != "" && p.to != "" }

// State is a point-in-time copy of a session.
type State struct {
	Status           Status
	OriginalCurrency string // empty when unselected
	TargetCurrency   string // empty when unselected
	// Rate is 1 whenever the pair is incomplete or an identity pair.
	Rate float64
	// RateValid reports whether Rate was fetched for the current pair.
	RateValid      bool
	Loading        bool
	PickerOpen     Picker
	OriginalSearch string
	TargetSearch   string
	// Failure is set in FetchFailed.
	Failure *FetchError
}

// Session is the conversion state machine for one bill-viewing session.
type Session struct {
	id      string
	dir     *currency.Directory
	rates   exchange.RateSource
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	current  pair
	rate     float64
	ratePair pair // pair rate was fetched for; zero when rate is the default
	loading  bool
	token    uint64
	failure  *FetchError
	picker   Picker
	search   map[Picker]string
	closed   bool
}

// Option configures a Session.
type Option func(*Session)

// WithDirectory replaces the default currency directory.
func WithDirectory(d *currency.Directory) Option {
	return func(s *Session) { s.dir = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithMetrics records discarded results on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithOriginalCurrency preselects the original currency, typically the
// bill's own currency. Unknown codes are ignored.
func WithOriginalCurrency(code string) Option {
	return func(s *Session) { s.current.from = code }
}

// NewSession creates an Idle session that fetches rates from rates.
func NewSession(rates exchange.RateSource, opts ...Option) *Session {
	s := &Session{
		id:     uuid.New().String(),
		dir:    currency.Default(),
		rates:  rates,
		logger: slog.Default(),
		rate:   1,
		search: make(map[Picker]string, 2),
	}
	for _, opt := range opts {
		opt(s)
	}
	if !s.dir.Contains(s.current.from) {
		s.current.from = ""
	}
	s.logger = s.logger.With("session_id", s.id)
	return s
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Status:           s.statusLocked(),
		OriginalCurrency: s.current.from,
		TargetCurrency:   s.current.to,
		Rate:             s.rateLocked(),
		RateValid:        s.rateValidLocked(),
		Loading:          s.loading,
		PickerOpen:       s.picker,
		OriginalSearch:   s.search[PickerOriginal],
		TargetSearch:     s.search[PickerTarget],
		Failure:          s.failureLocked(),
	}
}

// Conversion returns the active conversion, or nil when amounts should be
// shown in the bill's own currency only.
func (s *Session) Conversion() *models.Conversion {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.rateValidLocked() || s.current.from == s.current.to {
		return nil
	}
	return &models.Conversion{From: s.current.from, To: s.current.to, Rate: s.rate}
}

// SelectOriginal sets the currency amounts are converted from.
func (s *Session) SelectOriginal(code string) error {
	return s.selectCurrency(PickerOriginal, code)
}

// SelectTarget sets the currency amounts are converted to.
func (s *Session) SelectTarget(code string) error {
	return s.selectCurrency(PickerTarget, code)
}

// Choose selects code in the open picker, then closes it and clears its search.
func (s *Session) Choose(code string) error {
	s.mu.Lock()
	open := s.picker
	s.mu.Unlock()
	if open == PickerNone {
		return ErrNoPickerOpen
	}
	return s.selectCurrency(open, code)
}

func (s *Session) selectCurrency(side Picker, code string) error {
	if !s.dir.Contains(code) {
		return &ValidationError{
			Err:   fmt.Errorf("%w: %q", ErrUnknownCurrency, code),
			Alert: models.Alert{Title: "Error", Message: fmt.Sprintf("Unknown currency: %s", code)},
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	next := s.current
	if side == PickerOriginal {
		next.from = code
	} else {
		next.to = code
	}
	if s.picker == side {
		s.closePickerLocked()
	}
	if next == s.current {
		return nil
	}

	s.changePairLocked(next)
	// a rate for another pair must never stay in effect
	s.rate = 1
	s.ratePair = pair{}
	s.logger.Debug("Currency selected", "side", side.String(), "code", code, "status", s.statusLocked().String())
	return nil
}

// OpenPicker shows the list for one side. At most one picker is open, so
// opening one closes (and clears the search of) the other.
func (s *Session) OpenPicker(p Picker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == s.picker {
		return
	}
	s.closePickerLocked()
	s.picker = p
}

// ClosePicker hides the open picker without selecting and clears its search.
func (s *Session) ClosePicker() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closePickerLocked()
}

func (s *Session) closePickerLocked() {
	if s.picker != PickerNone {
		delete(s.search, s.picker)
	}
	s.picker = PickerNone
}

// SetSearch updates the search text of the open picker.
// It returns false when no picker is open.
func (s *Session) SetSearch(query string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.picker == PickerNone {
		return false
	}
	s.search[s.picker] = query
	return true
}

// Options lists the currencies the open picker shows: the whole directory
// for an empty search, otherwise the matches. Nil when no picker is open.
func (s *Session) Options() []currency.Entry {
	s.mu.Lock()
	open, query := s.picker, s.search[s.picker]
	s.mu.Unlock()
	if open == PickerNone {
		return nil
	}
	if query == "" {
		return s.dir.All()
	}
	return s.dir.Search(query)
}

// Swap exchanges the original and target currencies without fetching.
//
// The stored rate is kept, together with the pair it was fetched for, so it
// is not treated as valid for the reversed pair: Conversion returns nil and
// the status is PairSelected until the caller confirms again. Swapping back
// restores the fetched pair and with it the rate's validity.
func (s *Session) Swap() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	swapped := pair{from: s.current.to, to: s.current.from}
	if swapped == s.current {
		return nil
	}
	s.changePairLocked(swapped)
	s.logger.Debug("Currencies swapped", "from", swapped.from, "to", swapped.to, "rate_valid", s.rateValidLocked())
	return nil
}

// changePairLocked moves to a new pair. Any fetch in flight is for the old
// pair, so it is invalidated and loading ends.
func (s *Session) changePairLocked(next pair) {
	s.current = next
	s.token++
	s.loading = false
}

// Confirm validates the pair and fetches its rate.
//
// Validation failures return a *ValidationError synchronously and leave the
// state untouched. A second Confirm while a fetch is in flight returns
// ErrFetchInFlight. A failed fetch resets the rate to 1, moves to
// FetchFailed and returns a *FetchError carrying the alert to show.
// If the pair changed or the session closed while fetching, the result is
// dropped and ErrSuperseded is returned.
func (s *Session) Confirm(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if err := validatePair(s.current); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.loading {
		s.mu.Unlock()
		return ErrFetchInFlight
	}
	s.token++
	token, requested := s.token, s.current
	s.loading = true
	s.failure = nil
	s.mu.Unlock()

	s.logger.Info("Fetching exchange rate", "from", requested.from, "to", requested.to)
	rate, err := s.rates.GetRate(ctx, requested.from, requested.to)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || token != s.token {
		s.metrics.ObserveDiscardedRate()
		s.logger.Debug("Discarding exchange rate result", "from", requested.from, "to", requested.to, "error", err)
		return ErrSuperseded
	}
	s.loading = false

	if err != nil {
		fe := newFetchError(requested, err)
		s.rate = 1
		s.ratePair = pair{}
		s.failure = fe
		s.logger.Warn("Exchange rate fetch failed", "from", requested.from, "to", requested.to, "kind", fe.Kind.String(), "error", err)
		return fe
	}

	s.rate = rate
	s.ratePair = requested
	s.logger.Info("Exchange rate ready", "from", requested.from, "to", requested.to, "rate", rate)
	return nil
}

// Close ends the session. A fetch still in flight will be discarded and all
// further mutations return ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.token++
	s.loading = false
	s.picker = PickerNone
}

func validatePair(p pair) error {
	if !p.complete() {
		return &ValidationError{
			Err:   ErrMissingCurrency,
			Alert: models.Alert{Title: "Error", Message: "Please select both currencies"},
		}
	}
	if p.from == p.to {
		return &ValidationError{
			Err:   ErrSameCurrency,
			Alert: models.Alert{Title: "Error", Message: "Please select different currencies for conversion"},
		}
	}
	return nil
}

func (s *Session) rateLocked() float64 {
	if !s.current.complete() || s.current.from == s.current.to {
		return 1
	}
	return s.rate
}

func (s *Session) rateValidLocked() bool {
	return s.current.complete() && s.ratePair == s.current
}

func (s *Session) failureLocked() *FetchError {
	if s.failure == nil || s.failure.pair != s.current {
		return nil
	}
	return s.failure
}

func (s *Session) statusLocked() Status {
	switch {
	case s.loading:
		return Fetching
	case !s.current.complete():
		return Idle
	case s.failureLocked() != nil:
		return FetchFailed
	case s.rateValidLocked():
		return RateReady
	default:
		return PairSelected
	}
}
