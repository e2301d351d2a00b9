package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"foreclosure-backend/lib/listing"
	"foreclosure-backend/lib/scrapers/sheriffsale"
	"foreclosure-backend/lib/serviceutil"
	"foreclosure-backend/services/reconciler"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"
)

type fakeReconciler struct {
	err       error
	reconcile []string
	persisted [][]listing.Record
}

func (f *fakeReconciler) Reconcile(ctx context.Context, county string) (reconciler.Report, error) {
	f.reconcile = append(f.reconcile, county)
	if f.err != nil {
		return reconciler.Report{County: county, Stage: reconciler.StageFetching}, f.err
	}
	return reconciler.Report{
		County:   county,
		Stage:    reconciler.StageDone,
		Inserted: 1,
		Batch:    []listing.Record{{Address: "12 Main St", Price: listing.Price(150000), County: county}},
	}, nil
}

func (f *fakeReconciler) Persist(ctx context.Context, county string, batch []listing.Record) (reconciler.Report, error) {
	f.persisted = append(f.persisted, batch)
	if f.err != nil {
		return reconciler.Report{County: county}, f.err
	}
	return reconciler.Report{County: county, Stage: reconciler.StageDone, Inserted: len(batch)}, nil
}

type countingFetcher struct {
	count *int
}

func (f countingFetcher) Fetch(ctx context.Context, pageUrl string) (sheriffsale.Result, error) {
	*f.count++
	return sheriffsale.Result{}, nil
}

func serve(t *testing.T, service Reconciler, opts ...connect.HandlerOption) Client {
	mux := http.NewServeMux()
	mux.Handle(NewHandler(service, opts...))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return NewClient(server.Client(), server.URL)
}

func TestScrape(t *testing.T) {
	fake := &fakeReconciler{}
	client := serve(t, fake)

	res, err := client.Scrape(context.Background(), "Morris")
	require.NoError(t, err)
	require.Equal(t, []string{"Morris"}, fake.reconcile)
	require.Len(t, res.Records, 1)
	require.Equal(t, "12 Main St", res.Records[0].Address)
	require.Equal(t, 150000.0, *res.Records[0].Price)
	require.Equal(t, reconciler.StageDone, res.Report.Stage)
	require.Equal(t, 1, res.Report.Inserted)
	require.Empty(t, res.Report.Batch)
}

func TestPersist(t *testing.T) {
	fake := &fakeReconciler{}
	client := serve(t, fake)

	records := []listing.Record{{Address: "1 Elm St"}, {Address: "2 Elm St", Status: "Sold"}}
	res, err := client.Persist(context.Background(), "Morris", records)
	require.NoError(t, err)
	require.Equal(t, 2, res.Report.Inserted)
	require.Equal(t, [][]listing.Record{records}, fake.persisted)
}

func TestErrorCodes(t *testing.T) {
	cases := []struct {
		kind listing.Kind
		code connect.Code
	}{
		{kind: listing.KindPrecondition, code: connect.CodeInvalidArgument},
		{kind: listing.KindNetworkTimeout, code: connect.CodeUnavailable},
		{kind: listing.KindScrapeEmpty, code: connect.CodeFailedPrecondition},
		{kind: listing.KindScrapeMalformed, code: connect.CodeFailedPrecondition},
		{kind: listing.KindGeneric, code: connect.CodeInternal},
	}

	for _, test := range cases {
		t.Run(test.kind.String(), func(t *testing.T) {
			client := serve(t, &fakeReconciler{err: listing.Failf(test.kind, "boom")})

			_, err := client.Scrape(context.Background(), "Morris")
			require.Error(t, err)
			require.Equal(t, test.code, connect.CodeOf(err))

			var connectErr *connect.Error
			require.ErrorAs(t, err, &connectErr)
			require.Equal(t, test.kind.String(), connectErr.Meta().Get("Foreclosures-Kind"))
		})
	}
}

func TestUnknownCountyNeverFetches(t *testing.T) {
	fetched := 0
	service := reconciler.NewService(reconciler.Options{
		Counties: reconciler.DefaultCounties(),
		Fetcher:  countingFetcher{count: &fetched},
	})
	client := serve(t, service)

	_, err := client.Scrape(context.Background(), "Passaic")
	require.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	require.Equal(t, 0, fetched)
}

func TestAccessToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle(NewHandler(
		&fakeReconciler{},
		connect.WithInterceptors(serviceutil.VerifyAccessTokenInterceptor("secret")),
	))
	server := httptest.NewServer(mux)
	defer server.Close()

	anonymous := NewClient(server.Client(), server.URL)
	_, err := anonymous.Scrape(context.Background(), "Morris")
	require.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	authed := NewClient(
		server.Client(), server.URL,
		connect.WithInterceptors(serviceutil.ProvideAccessTokenInterceptor("secret")),
	)
	_, err = authed.Scrape(context.Background(), "Morris")
	require.NoError(t, err)
}
