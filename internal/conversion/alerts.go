package conversion

import (
	"errors"
	"fmt"

	"github.com/mmynk/flicksplit/internal/exchange"
	"github.com/mmynk/flicksplit/internal/models"
)

// ValidationError rejects a request before any fetch is attempted.
type ValidationError struct {
	Err   error
	Alert models.Alert
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// FailureKind classifies a failed rate fetch for display.
type FailureKind int

const (
	FailureGeneric FailureKind = iota
	FailureOffline
)

func (k FailureKind) String() string {
	if k == FailureOffline {
		return "offline"
	}
	return "generic"
}

// FetchError is returned by Confirm when the gateway fails.
type FetchError struct {
	Kind  FailureKind
	From  string
	To    string
	Alert models.Alert
	Err   error

	pair pair
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch rate %s to %s: %v", e.From, e.To, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func newFetchError(p pair, err error) *FetchError {
	fe := &FetchError{From: p.from, To: p.to, Err: err, pair: p}
	switch {
	case errors.Is(err, exchange.ErrNetworkUnavailable):
		fe.Kind = FailureOffline
		fe.Alert = models.Alert{
			Title:   "No Internet",
			Message: "Currency conversion requires an internet connection. Please check your connection and try again.",
		}
	case errors.Is(err, exchange.ErrRateNotFound):
		fe.Alert = models.Alert{
			Title:   "Conversion Error",
			Message: fmt.Sprintf("Conversion from %s to %s is not available. Please choose another currency.", p.from, p.to),
		}
	default:
		fe.Alert = models.Alert{
			Title:   "Conversion Error",
			Message: "Unable to get exchange rate. Please try again.",
		}
	}
	return fe
}

// AlertFor returns the alert to show for an error returned by a Session, and
// false when the error carries none (nil, ErrSuperseded, ErrClosed).
func AlertFor(err error) (models.Alert, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Alert, true
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Alert, true
	}
	if errors.Is(err, ErrFetchInFlight) {
		return models.Alert{Title: "Please Wait", Message: "Exchange rate is still loading."}, true
	}
	return models.Alert{}, false
}
