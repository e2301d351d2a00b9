package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"foreclosure-backend/lib/listing"
	"foreclosure-backend/services/reconciler"

	"connectrpc.com/connect"
)

const ServiceName = "foreclosures.v1.ReconcilerService"

const (
	ScrapeProcedure  = "/" + ServiceName + "/Scrape"
	PersistProcedure = "/" + ServiceName + "/Persist"
)

type ScrapeRequest struct {
	County string `json:"county"`
}

type ScrapeResponse struct {
	Records []listing.Record  `json:"records"`
	Report  reconciler.Report `json:"report"`
}

type PersistRequest struct {
	County  string           `json:"county"`
	Records []listing.Record `json:"records"`
}

type PersistResponse struct {
	Report reconciler.Report `json:"report"`
}

// Reconciler is the part of reconciler.Service the endpoints use.
type Reconciler interface {
	Reconcile(ctx context.Context, county string) (reconciler.Report, error)
	Persist(ctx context.Context, county string, batch []listing.Record) (reconciler.Report, error)
}

func code(err error) connect.Code {
	if errors.Is(err, context.Canceled) {
		return connect.CodeCanceled
	}
	switch listing.KindOf(err) {
	case listing.KindPrecondition:
		return connect.CodeInvalidArgument
	case listing.KindNetworkTimeout:
		return connect.CodeUnavailable
	case listing.KindScrapeEmpty, listing.KindScrapeMalformed:
		return connect.CodeFailedPrecondition
	default:
		return connect.CodeInternal
	}
}

func toConnectError(ctx context.Context, procedure string, report reconciler.Report, err error) error {
	slog.WarnContext(
		ctx, "request failed",
		"source", "api",
		"procedure", procedure,
		"county", report.County,
		"stage", report.Stage,
		"kind", listing.KindOf(err).String(),
		"err", err,
	)
	connectErr := connect.NewError(code(err), err)
	connectErr.Meta().Set("Foreclosures-Kind", listing.KindOf(err).String())
	connectErr.Meta().Set("Foreclosures-Stage", report.Stage.String())
	return connectErr
}

type handler struct {
	service Reconciler
}

func (h handler) scrape(ctx context.Context, req *connect.Request[ScrapeRequest]) (*connect.Response[ScrapeResponse], error) {
	report, err := h.service.Reconcile(ctx, req.Msg.County)
	if err != nil {
		return nil, toConnectError(ctx, ScrapeProcedure, report, err)
	}
	records := report.Batch
	report.Batch = nil
	return connect.NewResponse(&ScrapeResponse{
		Records: records,
		Report:  report,
	}), nil
}

func (h handler) persist(ctx context.Context, req *connect.Request[PersistRequest]) (*connect.Response[PersistResponse], error) {
	report, err := h.service.Persist(ctx, req.Msg.County, req.Msg.Records)
	if err != nil {
		return nil, toConnectError(ctx, PersistProcedure, report, err)
	}
	return connect.NewResponse(&PersistResponse{Report: report}), nil
}

// NewHandler returns the path prefix and handler serving the reconciler
// endpoints, mount it on a mux.
func NewHandler(service Reconciler, opts ...connect.HandlerOption) (string, http.Handler) {
	h := handler{service: service}
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(ScrapeProcedure, connect.NewUnaryHandler(ScrapeProcedure, h.scrape, opts...))
	mux.Handle(PersistProcedure, connect.NewUnaryHandler(PersistProcedure, h.persist, opts...))
	return "/" + ServiceName + "/", mux
}

type Client struct {
	scrape  *connect.Client[ScrapeRequest, ScrapeResponse]
	persist *connect.Client[PersistRequest, PersistResponse]
}

func NewClient(httpClient connect.HTTPClient, baseUrl string, opts ...connect.ClientOption) Client {
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return Client{
		scrape:  connect.NewClient[ScrapeRequest, ScrapeResponse](httpClient, baseUrl+ScrapeProcedure, opts...),
		persist: connect.NewClient[PersistRequest, PersistResponse](httpClient, baseUrl+PersistProcedure, opts...),
	}
}

func (c Client) Scrape(ctx context.Context, county string) (*ScrapeResponse, error) {
	res, err := c.scrape.CallUnary(ctx, connect.NewRequest(&ScrapeRequest{County: county}))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c Client) Persist(ctx context.Context, county string, records []listing.Record) (*PersistResponse, error) {
	res, err := c.persist.CallUnary(ctx, connect.NewRequest(&PersistRequest{County: county, Records: records}))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}
