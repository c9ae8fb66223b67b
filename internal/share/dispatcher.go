// Package share hands a rendered bill summary to whatever delivers it
// (the OS share sheet on a phone, stdout for the CLI, an HTTP response).
package share

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mmynk/flicksplit/internal/metrics"
	"github.com/mmynk/flicksplit/internal/models"
	"github.com/mmynk/flicksplit/internal/summary"
)

var (
	// ErrUserCancelled is returned by a Sharer when the user dismissed the
	// share dialog. It is not a failure.
	ErrUserCancelled = errors.New("share cancelled by user")

	// ErrShareFailed wraps any other Sharer error.
	ErrShareFailed = errors.New("share failed")

	// ErrNothingToShare means there were no guests.
	ErrNothingToShare = errors.New("no guests to share")
)

// Outcome labels used for metrics and results.
const (
	OutcomeShared    = "shared"
	OutcomeCancelled = "cancelled"
	OutcomeEmpty     = "empty"
	OutcomeFailed    = "failed"
)

// Message is what gets shared.
type Message struct {
	Title string
	Text  string
}

// Sharer delivers a message.
type Sharer interface {
	Share(ctx context.Context, msg Message) error
}

// SharerFunc adapts a function to Sharer.
type SharerFunc func(ctx context.Context, msg Message) error

func (f SharerFunc) Share(ctx context.Context, msg Message) error { return f(ctx, msg) }

// WriterSharer writes the message text to W.
type WriterSharer struct {
	W io.Writer
}

func (w WriterSharer) Share(_ context.Context, msg Message) error {
	if _, err := io.WriteString(w.W, msg.Text+"\n"); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// Error is returned by Dispatch for outcomes the user must be told about.
type Error struct {
	Err   error
	Alert models.Alert
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Request bundles what Dispatch renders.
type Request struct {
	Guests        []models.Guest
	Bill          models.Bill
	Conversion    *models.Conversion
	VenmoUsername string
}

// Dispatcher renders a summary and passes it to a Sharer.
type Dispatcher struct {
	sharer   Sharer
	renderer *summary.Renderer
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithRenderer(r *summary.Renderer) Option {
	return func(d *Dispatcher) { d.renderer = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// NewDispatcher creates a Dispatcher delivering through s.
func NewDispatcher(s Sharer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sharer:   s,
		renderer: summary.NewRenderer(nil),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Check reports whether there is anything to share.
func Check(guests []models.Guest) error {
	if len(guests) == 0 {
		return &Error{
			Err:   ErrNothingToShare,
			Alert: models.Alert{Title: "No Data", Message: "There are no guests to share information about."},
		}
	}
	return nil
}

// Dispatch renders req and shares it under summary.Title.
//
// It returns the outcome label. A cancelled share returns OutcomeCancelled
// with a nil error. An empty guest list or a Sharer failure returns an *Error
// carrying the alert to show; the caller's state is never affected.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (string, error) {
	if err := Check(req.Guests); err != nil {
		d.metrics.ObserveShare(OutcomeEmpty)
		return OutcomeEmpty, err
	}

	msg := Message{
		Title: summary.Title,
		Text:  d.renderer.Render(req.Guests, req.Bill, req.Conversion, req.VenmoUsername),
	}

	err := d.share(ctx, msg)
	switch {
	case err == nil:
		d.metrics.ObserveShare(OutcomeShared)
		d.logger.Info("Bill summary shared", "guests", len(req.Guests), "converted", req.Conversion.Active())
		return OutcomeShared, nil
	case errors.Is(err, ErrUserCancelled):
		d.metrics.ObserveShare(OutcomeCancelled)
		d.logger.Debug("Share cancelled")
		return OutcomeCancelled, nil
	default:
		d.metrics.ObserveShare(OutcomeFailed)
		d.logger.Error("Share failed", "error", err)
		return OutcomeFailed, &Error{
			Err:   fmt.Errorf("%w: %v", ErrShareFailed, err),
			Alert: models.Alert{Title: "Error", Message: "Failed to share bill details"},
		}
	}
}

// share calls the Sharer, turning a panic into an error.
func (d *Dispatcher) share(ctx context.Context, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sharer panicked: %v", r)
		}
	}()
	return d.sharer.Share(ctx, msg)
}
