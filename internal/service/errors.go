package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/flicksplit/internal/calculator"
	"github.com/mmynk/flicksplit/internal/conversion"
	"github.com/mmynk/flicksplit/internal/exchange"
	"github.com/mmynk/flicksplit/internal/storage"
)

// Response headers carrying the user-facing alert for a failed call.
const (
	AlertTitleHeader   = "Flicksplit-Alert-Title"
	AlertMessageHeader = "Flicksplit-Alert-Message"
)

// toConnectError maps domain errors onto Connect codes. Errors that carry an
// alert expose it through the alert headers.
func toConnectError(err error) *connect.Error {
	var cerr *connect.Error
	if errors.As(err, &cerr) {
		return cerr
	}

	var ve *conversion.ValidationError
	code := connect.CodeInternal
	switch {
	case errors.As(err, &ve),
		errors.Is(err, calculator.ErrInvalidBill),
		errors.Is(err, calculator.ErrInvalidConversion),
		errors.Is(err, calculator.ErrUnassignedItem):
		code = connect.CodeInvalidArgument
	case errors.Is(err, exchange.ErrNetworkUnavailable):
		code = connect.CodeUnavailable
	case errors.Is(err, exchange.ErrRateNotFound), errors.Is(err, storage.ErrNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, conversion.ErrFetchInFlight):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, conversion.ErrSuperseded), errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeDeadlineExceeded
	case errors.Is(err, exchange.ErrService):
		code = connect.CodeUnavailable
	}
	if code == connect.CodeInternal {
		slog.Error("Unexpected service error", "error", err)
	}

	cerr = connect.NewError(code, err)
	if alert, ok := conversion.AlertFor(err); ok {
		cerr.Meta().Set(AlertTitleHeader, alert.Title)
		cerr.Meta().Set(AlertMessageHeader, alert.Message)
	}
	return cerr
}
