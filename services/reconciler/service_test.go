package reconciler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"foreclosure-backend/lib/listing"
	"foreclosure-backend/lib/listingstore"
	"foreclosure-backend/lib/scrapers/sheriffsale"
	"foreclosure-backend/lib/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	result sheriffsale.Result
	err    error
	urls   []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, pageUrl string) (sheriffsale.Result, error) {
	f.urls = append(f.urls, pageUrl)
	return f.result, f.err
}

func rows(raw ...listing.RawRow) sheriffsale.Result {
	return sheriffsale.Result{
		Rows:  raw,
		Stats: sheriffsale.ParseStats{Rows: len(raw)},
	}
}

type recordingNotifier struct {
	reports []Report
	err     error
}

func (n *recordingNotifier) Notify(ctx context.Context, report Report) error {
	n.reports = append(n.reports, report)
	return n.err
}

type fixture struct {
	dir      string
	fetcher  *fakeFetcher
	notifier *recordingNotifier
	service  Service
}

func newFixture(t *testing.T) fixture {
	cleanup := telemetry.SetupForTesting(t, "test:reconciler")
	t.Cleanup(cleanup)

	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.DownloadsDir = dir

	f := fixture{
		dir:      dir,
		fetcher:  &fakeFetcher{},
		notifier: &recordingNotifier{},
	}
	f.service = NewService(Options{
		Counties:           DefaultCounties(),
		Fetcher:            f.fetcher,
		StoreFor:           cfg.Stores(nil),
		ListingUrlTemplate: listing.DefaultListingUrlTemplate,
		Notifier:           f.notifier,
	})
	return f
}

func (f fixture) store(county string) listingstore.CSVStore {
	return listingstore.NewCSVStore(listingstore.CSVPath(f.dir, county))
}

func TestUnknownCounty(t *testing.T) {
	f := newFixture(t)

	report, err := f.service.Reconcile(context.Background(), "Passaic")
	require.Error(t, err)
	require.Equal(t, listing.KindPrecondition, listing.KindOf(err))
	require.Equal(t, StageIdle, report.Stage)
	require.Empty(t, f.fetcher.urls, "no request may be made for an unknown county")

	_, err = os.Stat(f.store("Passaic").Location())
	require.True(t, os.IsNotExist(err))
}

func TestNewListing(t *testing.T) {
	f := newFixture(t)
	f.fetcher.result = rows(listing.RawRow{Address: "12 Main St", Price: "$150,000"})

	report, err := f.service.Reconcile(context.Background(), "Morris")
	require.NoError(t, err)
	require.Equal(t, []string{"https://salesweb.civilview.com/Sales/SalesSearch?countyId=9"}, f.fetcher.urls)

	idx, err := f.store("Morris").Load(context.Background())
	require.NoError(t, err)
	expected := listing.Index{
		"12 Main St": {
			Address:    "12 Main St",
			Price:      listing.Price(150000),
			County:     "Morris",
			ListingUrl: "https://www.zillow.com/homes/12-main-st_rb/",
		},
	}
	if diff := cmp.Diff(expected, idx); diff != "" {
		t.Fatal(diff)
	}

	require.Equal(t, StageDone, report.Stage)
	require.Equal(t, 1, report.Fetched)
	require.Equal(t, 1, report.Inserted)
	require.Equal(t, 0, report.Updated)
	require.Equal(t, 1, report.Derived)
	require.Equal(t, 0, report.TotalBefore)
	require.Equal(t, 1, report.TotalAfter)
	require.Equal(t, []string{"12 Main St"}, report.NewAddresses)
	require.Equal(t, f.store("Morris").Location(), report.Store)
	require.Len(t, report.Batch, 1)
	require.Empty(t, report.Batch[0].ListingUrl, "the batch is reported as normalized")

	require.Len(t, f.notifier.reports, 1)
}

func TestFieldLevelOverwrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.store("Morris").Save(ctx, listing.Index{
		"12 Main St": {
			Address:    "12 Main St",
			Price:      listing.Price(150000),
			Status:     "Active",
			ListingUrl: "https://example.com/custom",
		},
		"4 Oak Rd": {Address: "4 Oak Rd"},
	})
	require.NoError(t, err)

	f.fetcher.result = rows(listing.RawRow{Address: "12 Main St", Price: "160,000"})
	report, err := f.service.Reconcile(ctx, "Morris")
	require.NoError(t, err)

	idx, err := f.store("Morris").Load(ctx)
	require.NoError(t, err)
	require.Len(t, idx, 2, "records are never dropped")

	merged := idx["12 Main St"]
	require.Equal(t, 160000.0, *merged.Price)
	require.Equal(t, "Active", merged.Status)
	require.Equal(t, "https://example.com/custom", merged.ListingUrl)
	require.Equal(t, "https://www.zillow.com/homes/4-oak-rd_rb/", idx["4 Oak Rd"].ListingUrl)

	require.Equal(t, 0, report.Inserted)
	require.Equal(t, 1, report.Updated)
	require.Equal(t, 1, report.Derived)
	require.Equal(t, 2, report.TotalBefore)
	require.Equal(t, 2, report.TotalAfter)
	require.Empty(t, report.NewAddresses)
}

func TestRerunIsStable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fetcher.result = rows(
		listing.RawRow{Address: "12 Main St", Price: "$150,000", Status: "Scheduled"},
		listing.RawRow{Address: "9 Elm Ave", Price: "n/a"},
	)

	_, err := f.service.Reconcile(ctx, "Essex")
	require.NoError(t, err)
	first, err := os.ReadFile(f.store("Essex").Location())
	require.NoError(t, err)

	report, err := f.service.Reconcile(ctx, "Essex")
	require.NoError(t, err)
	second, err := os.ReadFile(f.store("Essex").Location())
	require.NoError(t, err)

	require.Equal(t, string(first), string(second))
	require.Equal(t, 0, report.Derived)
	require.Equal(t, 2, report.Updated)
}

func TestFetchFailureLeavesStore(t *testing.T) {
	cases := []struct {
		name   string
		result sheriffsale.Result
		err    error
		kind   listing.Kind
	}{
		{name: "empty", err: listing.Failf(listing.KindScrapeEmpty, "no listings"), kind: listing.KindScrapeEmpty},
		{name: "no rows", result: rows(), kind: listing.KindScrapeEmpty},
		{name: "plain error", err: errors.New("unexpected markup"), kind: listing.KindScrapeMalformed},
		{name: "timeout", err: listing.Failf(listing.KindNetworkTimeout, "deadline"), kind: listing.KindNetworkTimeout},
		{name: "malformed", err: listing.Failf(listing.KindScrapeMalformed, "no table"), kind: listing.KindScrapeMalformed},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			existing := listing.IndexOf([]listing.Record{{Address: "1 Elm St", Status: "Active"}})
			require.NoError(t, f.store("Morris").Save(ctx, existing))
			before, err := os.ReadFile(f.store("Morris").Location())
			require.NoError(t, err)

			f.fetcher.result = test.result
			f.fetcher.err = test.err
			report, err := f.service.Reconcile(ctx, "Morris")
			require.Error(t, err)
			require.Equal(t, test.kind, listing.KindOf(err))
			require.Equal(t, StageFetching, report.Stage)

			after, err := os.ReadFile(f.store("Morris").Location())
			require.NoError(t, err)
			require.Equal(t, string(before), string(after))
			require.Empty(t, f.notifier.reports)
		})
	}
}

func TestCorruptStoreDegrades(t *testing.T) {
	f := newFixture(t)
	path := f.store("Morris").Location()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0777))
	require.NoError(t, os.WriteFile(path, []byte("Price,Status\n1,Active\n"), 0600))

	f.fetcher.result = rows(listing.RawRow{Address: "12 Main St"})
	report, err := f.service.Reconcile(context.Background(), "Morris")
	require.NoError(t, err)
	require.True(t, report.StoreDegraded)
	require.Equal(t, 0, report.TotalBefore)

	idx, err := f.store("Morris").Load(context.Background())
	require.NoError(t, err)
	require.Len(t, idx, 1)
}

type failingStore struct {
	listingstore.Store
}

func (failingStore) Save(context.Context, listing.Index) error {
	return errors.New("disk full")
}

func TestPersistFailure(t *testing.T) {
	f := newFixture(t)
	f.service.opts.StoreFor = func(county string) listingstore.Store {
		return failingStore{Store: f.store(county)}
	}
	f.fetcher.result = rows(listing.RawRow{Address: "12 Main St"})

	report, err := f.service.Reconcile(context.Background(), "Morris")
	require.Error(t, err)
	require.Equal(t, listing.KindGeneric, listing.KindOf(err))
	require.Equal(t, StagePersisting, report.Stage)
	require.False(t, f.service.Run(context.Background(), "Morris"))
}

func TestRun(t *testing.T) {
	f := newFixture(t)
	f.fetcher.result = rows(listing.RawRow{Address: "12 Main St"})
	require.True(t, f.service.Run(context.Background(), "Morris"))
	require.False(t, f.service.Run(context.Background(), "Nowhere"))
}

func TestNotifierFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp down")
	f.fetcher.result = rows(listing.RawRow{Address: "12 Main St"})

	_, err := f.service.Reconcile(context.Background(), "Morris")
	require.NoError(t, err)
	require.Len(t, f.notifier.reports, 1)
}

func TestPersist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Persist(ctx, "Morris", nil)
	require.Equal(t, listing.KindPrecondition, listing.KindOf(err))
	_, err = f.service.Persist(ctx, "Nowhere", []listing.Record{{Address: "1 Elm St"}})
	require.Equal(t, listing.KindPrecondition, listing.KindOf(err))

	report, err := f.service.Persist(ctx, "Morris", []listing.Record{
		{Address: " 1 Elm St ", Price: listing.Price(10)},
		{Address: "2 Elm St", County: "Elsewhere"},
		{Address: ""},
	})
	require.NoError(t, err)
	require.Equal(t, StageDone, report.Stage)
	require.Equal(t, 2, report.Inserted)
	require.Equal(t, 1, report.Skipped)
	require.Empty(t, f.fetcher.urls)

	idx, err := f.store("Morris").Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "Morris", idx["1 Elm St"].County)
	require.Equal(t, "Elsewhere", idx["2 Elm St"].County)
	require.Equal(t, "https://www.zillow.com/homes/1-elm-st_rb/", idx["1 Elm St"].ListingUrl)
}
