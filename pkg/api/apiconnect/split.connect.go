// Package apiconnect wires the flicksplit.v1.SplitService messages to
// Connect handlers and clients.
package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/flicksplit/pkg/api"
)

// SplitServiceName is the fully-qualified name of the SplitService service.
const SplitServiceName = "flicksplit.v1.SplitService"

// Procedure paths, in the form "/Service/Method".
const (
	SplitServiceAllocateProcedure       = "/" + SplitServiceName + "/Allocate"
	SplitServiceGetRateProcedure        = "/" + SplitServiceName + "/GetRate"
	SplitServiceListCurrenciesProcedure = "/" + SplitServiceName + "/ListCurrencies"
	SplitServiceRenderSummaryProcedure  = "/" + SplitServiceName + "/RenderSummary"
	SplitServiceSaveBillProcedure       = "/" + SplitServiceName + "/SaveBill"
	SplitServiceGetBillProcedure        = "/" + SplitServiceName + "/GetBill"
	SplitServiceListBillsProcedure      = "/" + SplitServiceName + "/ListBills"
	SplitServiceDeleteBillProcedure     = "/" + SplitServiceName + "/DeleteBill"
	SplitServiceGetProfileProcedure     = "/" + SplitServiceName + "/GetProfile"
	SplitServiceUpdateProfileProcedure  = "/" + SplitServiceName + "/UpdateProfile"
)

// SplitServiceHandler is implemented by the server.
type SplitServiceHandler interface {
	Allocate(context.Context, *connect.Request[api.AllocateRequest]) (*connect.Response[api.AllocateResponse], error)
	GetRate(context.Context, *connect.Request[api.GetRateRequest]) (*connect.Response[api.GetRateResponse], error)
	ListCurrencies(context.Context, *connect.Request[api.ListCurrenciesRequest]) (*connect.Response[api.ListCurrenciesResponse], error)
	RenderSummary(context.Context, *connect.Request[api.RenderSummaryRequest]) (*connect.Response[api.RenderSummaryResponse], error)
	SaveBill(context.Context, *connect.Request[api.SaveBillRequest]) (*connect.Response[api.SaveBillResponse], error)
	GetBill(context.Context, *connect.Request[api.GetBillRequest]) (*connect.Response[api.GetBillResponse], error)
	ListBills(context.Context, *connect.Request[api.ListBillsRequest]) (*connect.Response[api.ListBillsResponse], error)
	DeleteBill(context.Context, *connect.Request[api.DeleteBillRequest]) (*connect.Response[api.DeleteBillResponse], error)
	GetProfile(context.Context, *connect.Request[api.GetProfileRequest]) (*connect.Response[api.GetProfileResponse], error)
	UpdateProfile(context.Context, *connect.Request[api.UpdateProfileRequest]) (*connect.Response[api.UpdateProfileResponse], error)
}

// SplitServiceClient calls a SplitService server.
type SplitServiceClient interface {
	Allocate(context.Context, *connect.Request[api.AllocateRequest]) (*connect.Response[api.AllocateResponse], error)
	GetRate(context.Context, *connect.Request[api.GetRateRequest]) (*connect.Response[api.GetRateResponse], error)
	ListCurrencies(context.Context, *connect.Request[api.ListCurrenciesRequest]) (*connect.Response[api.ListCurrenciesResponse], error)
	RenderSummary(context.Context, *connect.Request[api.RenderSummaryRequest]) (*connect.Response[api.RenderSummaryResponse], error)
	SaveBill(context.Context, *connect.Request[api.SaveBillRequest]) (*connect.Response[api.SaveBillResponse], error)
	GetBill(context.Context, *connect.Request[api.GetBillRequest]) (*connect.Response[api.GetBillResponse], error)
	ListBills(context.Context, *connect.Request[api.ListBillsRequest]) (*connect.Response[api.ListBillsResponse], error)
	DeleteBill(context.Context, *connect.Request[api.DeleteBillRequest]) (*connect.Response[api.DeleteBillResponse], error)
	GetProfile(context.Context, *connect.Request[api.GetProfileRequest]) (*connect.Response[api.GetProfileResponse], error)
	UpdateProfile(context.Context, *connect.Request[api.UpdateProfileRequest]) (*connect.Response[api.UpdateProfileResponse], error)
}

// NewSplitServiceHandler builds an HTTP handler for svc. It returns the path
// to mount it on. Messages use api.Codec.
func NewSplitServiceHandler(svc SplitServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(api.Codec{})}, opts...)
	mux := http.NewServeMux()
	mux.Handle(SplitServiceAllocateProcedure, connect.NewUnaryHandler(SplitServiceAllocateProcedure, svc.Allocate, opts...))
	mux.Handle(SplitServiceGetRateProcedure, connect.NewUnaryHandler(SplitServiceGetRateProcedure, svc.GetRate, opts...))
	mux.Handle(SplitServiceListCurrenciesProcedure, connect.NewUnaryHandler(SplitServiceListCurrenciesProcedure, svc.ListCurrencies, opts...))
	mux.Handle(SplitServiceRenderSummaryProcedure, connect.NewUnaryHandler(SplitServiceRenderSummaryProcedure, svc.RenderSummary, opts...))
	mux.Handle(SplitServiceSaveBillProcedure, connect.NewUnaryHandler(SplitServiceSaveBillProcedure, svc.SaveBill, opts...))
	mux.Handle(SplitServiceGetBillProcedure, connect.NewUnaryHandler(SplitServiceGetBillProcedure, svc.GetBill, opts...))
	mux.Handle(SplitServiceListBillsProcedure, connect.NewUnaryHandler(SplitServiceListBillsProcedure, svc.ListBills, opts...))
	mux.Handle(SplitServiceDeleteBillProcedure, connect.NewUnaryHandler(SplitServiceDeleteBillProcedure, svc.DeleteBill, opts...))
	mux.Handle(SplitServiceGetProfileProcedure, connect.NewUnaryHandler(SplitServiceGetProfileProcedure, svc.GetProfile, opts...))
	mux.Handle(SplitServiceUpdateProfileProcedure, connect.NewUnaryHandler(SplitServiceUpdateProfileProcedure, svc.UpdateProfile, opts...))
	return "/" + SplitServiceName + "/", mux
}

// NewSplitServiceClient creates a client for the server at baseURL
// (e.g. "http://localhost:8080").
func NewSplitServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) SplitServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(api.Codec{})}, opts...)
	return &splitServiceClient{
		allocate:       connect.NewClient[api.AllocateRequest, api.AllocateResponse](httpClient, baseURL+SplitServiceAllocateProcedure, opts...),
		getRate:        connect.NewClient[api.GetRateRequest, api.GetRateResponse](httpClient, baseURL+SplitServiceGetRateProcedure, opts...),
		listCurrencies: connect.NewClient[api.ListCurrenciesRequest, api.ListCurrenciesResponse](httpClient, baseURL+SplitServiceListCurrenciesProcedure, opts...),
		renderSummary:  connect.NewClient[api.RenderSummaryRequest, api.RenderSummaryResponse](httpClient, baseURL+SplitServiceRenderSummaryProcedure, opts...),
		saveBill:       connect.NewClient[api.SaveBillRequest, api.SaveBillResponse](httpClient, baseURL+SplitServiceSaveBillProcedure, opts...),
		getBill:        connect.NewClient[api.GetBillRequest, api.GetBillResponse](httpClient, baseURL+SplitServiceGetBillProcedure, opts...),
		listBills:      connect.NewClient[api.ListBillsRequest, api.ListBillsResponse](httpClient, baseURL+SplitServiceListBillsProcedure, opts...),
		deleteBill:     connect.NewClient[api.DeleteBillRequest, api.DeleteBillResponse](httpClient, baseURL+SplitServiceDeleteBillProcedure, opts...),
		getProfile:     connect.NewClient[api.GetProfileRequest, api.GetProfileResponse](httpClient, baseURL+SplitServiceGetProfileProcedure, opts...),
		updateProfile:  connect.NewClient[api.UpdateProfileRequest, api.UpdateProfileResponse](httpClient, baseURL+SplitServiceUpdateProfileProcedure, opts...),
	}
}

type splitServiceClient struct {
	allocate       *connect.Client[api.AllocateRequest, api.AllocateResponse]
	getRate        *connect.Client[api.GetRateRequest, api.GetRateResponse]
	listCurrencies *connect.Client[api.ListCurrenciesRequest, api.ListCurrenciesResponse]
	renderSummary  *connect.Client[api.RenderSummaryRequest, api.RenderSummaryResponse]
	saveBill       *connect.Client[api.SaveBillRequest, api.SaveBillResponse]
	getBill        *connect.Client[api.GetBillRequest, api.GetBillResponse]
	listBills      *connect.Client[api.ListBillsRequest, api.ListBillsResponse]
	deleteBill     *connect.Client[api.DeleteBillRequest, api.DeleteBillResponse]
	getProfile     *connect.Client[api.GetProfileRequest, api.GetProfileResponse]
	updateProfile  *connect.Client[api.UpdateProfileRequest, api.UpdateProfileResponse]
}

func (c *splitServiceClient) Allocate(ctx context.Context, req *connect.Request[api.AllocateRequest]) (*connect.Response[api.AllocateResponse], error) {
	return c.allocate.CallUnary(ctx, req)
}

func (c *splitServiceClient) GetRate(ctx context.Context, req *connect.Request[api.GetRateRequest]) (*connect.Response[api.GetRateResponse], error) {
	return c.getRate.CallUnary(ctx, req)
}

func (c *splitServiceClient) ListCurrencies(ctx context.Context, req *connect.Request[api.ListCurrenciesRequest]) (*connect.Response[api.ListCurrenciesResponse], error) {
	return c.listCurrencies.CallUnary(ctx, req)
}

func (c *splitServiceClient) RenderSummary(ctx context.Context, req *connect.Request[api.RenderSummaryRequest]) (*connect.Response[api.RenderSummaryResponse], error) {
	return c.renderSummary.CallUnary(ctx, req)
}

func (c *splitServiceClient) SaveBill(ctx context.Context, req *connect.Request[api.SaveBillRequest]) (*connect.Response[api.SaveBillResponse], error) {
	return c.saveBill.CallUnary(ctx, req)
}

func (c *splitServiceClient) GetBill(ctx context.Context, req *connect.Request[api.GetBillRequest]) (*connect.Response[api.GetBillResponse], error) {
	return c.getBill.CallUnary(ctx, req)
}

func (c *splitServiceClient) ListBills(ctx context.Context, req *connect.Request[api.ListBillsRequest]) (*connect.Response[api.ListBillsResponse], error) {
	return c.listBills.CallUnary(ctx, req)
}

func (c *splitServiceClient) DeleteBill(ctx context.Context, req *connect.Request[api.DeleteBillRequest]) (*connect.Response[api.DeleteBillResponse], error) {
	return c.deleteBill.CallUnary(ctx, req)
}

func (c *splitServiceClient) GetProfile(ctx context.Context, req *connect.Request[api.GetProfileRequest]) (*connect.Response[api.GetProfileResponse], error) {
	return c.getProfile.CallUnary(ctx, req)
}

func (c *splitServiceClient) UpdateProfile(ctx context.Context, req *connect.Request[api.UpdateProfileRequest]) (*connect.Response[api.UpdateProfileResponse], error) {
	return c.updateProfile.CallUnary(ctx, req)
}
