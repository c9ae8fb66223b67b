package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/flicksplit/internal/calculator"
	"github.com/mmynk/flicksplit/internal/conversion"
	"github.com/mmynk/flicksplit/internal/currency"
	"github.com/mmynk/flicksplit/internal/exchange"
	"github.com/mmynk/flicksplit/internal/metrics"
	"github.com/mmynk/flicksplit/internal/models"
	"github.com/mmynk/flicksplit/internal/storage"
	"github.com/mmynk/flicksplit/internal/summary"
	"github.com/mmynk/flicksplit/pkg/api"
	"github.com/mmynk/flicksplit/pkg/api/apiconnect"
)

// DefaultProfileID is used when a request names no profile.
const DefaultProfileID = "default"

// Ensure SplitService implements the Connect handler interface
var _ apiconnect.SplitServiceHandler = (*SplitService)(nil)

// SplitService implements the Connect SplitService
type SplitService struct {
	store    storage.Store
	rates    exchange.RateSource
	dir      *currency.Directory
	renderer *summary.Renderer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures a SplitService.
type Option func(*SplitService)

func WithDirectory(d *currency.Directory) Option {
	return func(s *SplitService) { s.dir = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *SplitService) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *SplitService) { s.logger = l }
}

// NewSplitService creates a new SplitService with the given storage backend
// and rate source.
func NewSplitService(store storage.Store, rates exchange.RateSource, opts ...Option) *SplitService {
	s := &SplitService{
		store:  store,
		rates:  rates,
		dir:    currency.Default(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.renderer = summary.NewRenderer(s.dir)
	return s
}

// allocate runs the allocation engine and records the result.
func (s *SplitService) allocate(bill models.Bill, assignment models.Assignment) (calculator.Allocation, error) {
	alloc, err := calculator.Allocate(bill, assignment)
	switch {
	case err != nil:
		s.metrics.ObserveAllocation("invalid")
		return alloc, err
	case len(alloc.Unassigned) > 0:
		s.metrics.ObserveAllocation("unassigned")
	default:
		s.metrics.ObserveAllocation("ok")
	}
	for _, g := range alloc.Guests {
		s.logger.Debug("Guest share",
			"guest", g.Name,
			"subtotal", g.Subtotal,
			"tax", g.Tax,
			"tip", g.Tip,
			"total", g.Total,
			"items_count", len(g.Items),
		)
	}
	return alloc, nil
}

// Allocate computes each guest's share of a bill.
func (s *SplitService) Allocate(ctx context.Context, req *connect.Request[api.AllocateRequest]) (*connect.Response[api.AllocateResponse], error) {
	alloc, err := s.allocate(req.Msg.Bill, req.Msg.Assignment)
	if err != nil {
		return nil, toConnectError(err)
	}
	if len(alloc.Unassigned) > 0 {
		s.logger.Warn("Items not assigned to any guest", "count", len(alloc.Unassigned))
	}

	return connect.NewResponse(&api.AllocateResponse{
		Guests:     alloc.Guests,
		Unassigned: alloc.Unassigned,
		Total:      alloc.Total(),
	}), nil
}

// GetRate confirms a conversion pair and returns its rate. Each call is a
// one-shot conversion session, so missing, unknown or identical currencies
// are rejected the same way the app rejects them.
func (s *SplitService) GetRate(ctx context.Context, req *connect.Request[api.GetRateRequest]) (*connect.Response[api.GetRateResponse], error) {
	from := strings.ToUpper(strings.TrimSpace(req.Msg.From))
	to := strings.ToUpper(strings.TrimSpace(req.Msg.To))

	session := conversion.NewSession(s.rates,
		conversion.WithDirectory(s.dir),
		conversion.WithLogger(s.logger),
		conversion.WithMetrics(s.metrics),
	)
	defer session.Close()

	if from != "" {
		if err := session.SelectOriginal(from); err != nil {
			return nil, toConnectError(err)
		}
	}
	if to != "" {
		if err := session.SelectTarget(to); err != nil {
			return nil, toConnectError(err)
		}
	}
	if err := session.Confirm(ctx); err != nil {
		return nil, toConnectError(err)
	}

	conv := session.Conversion()
	if conv == nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("no rate after confirming %s to %s", from, to))
	}
	return connect.NewResponse(&api.GetRateResponse{From: conv.From, To: conv.To, Rate: conv.Rate}), nil
}

// ListCurrencies returns the currency picker contents.
func (s *SplitService) ListCurrencies(ctx context.Context, req *connect.Request[api.ListCurrenciesRequest]) (*connect.Response[api.ListCurrenciesResponse], error) {
	entries := s.dir.Search(req.Msg.Query)
	out := make([]api.Currency, len(entries))
	for i, e := range entries {
		out[i] = api.Currency{Code: e.Code, Symbol: e.Symbol, Name: e.Name, Label: s.dir.Label(e.Code)}
	}
	return connect.NewResponse(&api.ListCurrenciesResponse{Currencies: out}), nil
}

// RenderSummary allocates the bill and renders the shareable report.
func (s *SplitService) RenderSummary(ctx context.Context, req *connect.Request[api.RenderSummaryRequest]) (*connect.Response[api.RenderSummaryResponse], error) {
	alloc, err := s.allocate(req.Msg.Bill, req.Msg.Assignment)
	if err != nil {
		return nil, toConnectError(err)
	}
	if err := calculator.CheckConversion(req.Msg.Conversion, req.Msg.Bill, alloc); err != nil {
		return nil, toConnectError(err)
	}

	venmo, err := s.venmoUsername(ctx, req.Msg.ProfileID)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.RenderSummaryResponse{
		Title:   summary.Title,
		Message: s.renderer.Render(alloc.Guests, req.Msg.Bill, req.Msg.Conversion, venmo),
	}), nil
}

// SaveBill allocates and stores a bill in history. Every item must be
// assigned to a listed guest.
func (s *SplitService) SaveBill(ctx context.Context, req *connect.Request[api.SaveBillRequest]) (*connect.Response[api.SaveBillResponse], error) {
	alloc, err := s.allocate(req.Msg.Bill, req.Msg.Assignment)
	if err != nil {
		return nil, toConnectError(err)
	}
	if err := alloc.Err(); err != nil {
		return nil, toConnectError(err)
	}
	if err := calculator.CheckConversion(req.Msg.Conversion, req.Msg.Bill, alloc); err != nil {
		return nil, toConnectError(err)
	}

	saved := &models.SavedBill{
		Bill:       req.Msg.Bill,
		Assignment: req.Msg.Assignment,
		Guests:     alloc.Guests,
		Conversion: req.Msg.Conversion,
	}
	if err := s.store.SaveBill(ctx, saved); err != nil {
		s.logger.Error("Failed to save bill", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Bill saved",
		"bill_id", saved.Bill.ID,
		"restaurant", saved.Bill.Restaurant,
		"guests", len(saved.Guests),
	)

	return connect.NewResponse(&api.SaveBillResponse{
		BillID:    saved.Bill.ID,
		CreatedAt: saved.Bill.CreatedAt,
		Guests:    saved.Guests,
	}), nil
}

// GetBill retrieves a saved bill.
func (s *SplitService) GetBill(ctx context.Context, req *connect.Request[api.GetBillRequest]) (*connect.Response[api.GetBillResponse], error) {
	if req.Msg.BillID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("bill_id required"))
	}
	saved, err := s.store.GetBill(ctx, req.Msg.BillID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.GetBillResponse{Bill: *saved}), nil
}

// ListBills returns bill history, newest first.
func (s *SplitService) ListBills(ctx context.Context, req *connect.Request[api.ListBillsRequest]) (*connect.Response[api.ListBillsResponse], error) {
	if req.Msg.Limit < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("limit cannot be negative"))
	}
	bills, err := s.store.ListBills(ctx, req.Msg.Limit)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.ListBillsResponse{Bills: bills}), nil
}

// DeleteBill removes a bill from history.
func (s *SplitService) DeleteBill(ctx context.Context, req *connect.Request[api.DeleteBillRequest]) (*connect.Response[api.DeleteBillResponse], error) {
	if req.Msg.BillID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("bill_id required"))
	}
	if err := s.store.DeleteBill(ctx, req.Msg.BillID); err != nil {
		return nil, toConnectError(err)
	}
	s.logger.Info("Bill deleted", "bill_id", req.Msg.BillID)
	return connect.NewResponse(&api.DeleteBillResponse{}), nil
}

// GetProfile returns sharing preferences. A profile that was never saved
// comes back empty rather than NotFound.
func (s *SplitService) GetProfile(ctx context.Context, req *connect.Request[api.GetProfileRequest]) (*connect.Response[api.GetProfileResponse], error) {
	id := profileID(req.Msg.ProfileID)
	profile, err := s.store.GetProfile(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		profile = &models.Profile{ID: id}
	} else if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.GetProfileResponse{Profile: *profile}), nil
}

// UpdateProfile stores the Venmo username. An empty username removes it.
func (s *SplitService) UpdateProfile(ctx context.Context, req *connect.Request[api.UpdateProfileRequest]) (*connect.Response[api.UpdateProfileResponse], error) {
	profile := &models.Profile{
		ID:            profileID(req.Msg.ProfileID),
		VenmoUsername: req.Msg.VenmoUsername,
	}
	if strings.ContainsAny(strings.TrimSpace(profile.VenmoUsername), " /?#") {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid venmo username %q", profile.VenmoUsername))
	}
	if err := s.store.UpsertProfile(ctx, profile); err != nil {
		return nil, toConnectError(err)
	}
	s.logger.Info("Profile updated", "profile_id", profile.ID, "has_venmo", profile.VenmoUsername != "")
	return connect.NewResponse(&api.UpdateProfileResponse{Profile: *profile}), nil
}

func (s *SplitService) venmoUsername(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", nil
	}
	profile, err := s.store.GetProfile(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return profile.VenmoUsername, nil
}

func profileID(id string) string {
	if id == "" {
		return DefaultProfileID
	}
	return id
}
