package reconciler

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"foreclosure-backend/lib/listing"
	"foreclosure-backend/lib/listingstore"
	"foreclosure-backend/lib/scrapers/sheriffsale"
	"foreclosure-backend/lib/telemetry"
	"foreclosure-backend/lib/timezone"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = telemetry.Tracer("services/reconciler")
var meter = telemetry.Meter("services/reconciler")

type Fetcher interface {
	Fetch(ctx context.Context, pageUrl string) (sheriffsale.Result, error)
}

// Notifier is told about every successful run.
type Notifier interface {
	Notify(ctx context.Context, report Report) error
}

type Options struct {
	Counties Counties
	Fetcher  Fetcher
	// returns the store for a county, called once per run
	StoreFor           func(county string) listingstore.Store
	ListingUrlTemplate string
	// optional
	Notifier Notifier
}

type Report struct {
	County string           `json:"county"`
	Stage  Stage            `json:"stage"`
	Batch  []listing.Record `json:"batch,omitempty"`

	Fetched   int `json:"fetched"`
	Malformed int `json:"malformed"`
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
	Derived   int `json:"derived"`
	// records that still have no listing url after deriving
	DeriveFailed int `json:"deriveFailed"`
	TotalBefore  int `json:"totalBefore"`
	TotalAfter   int `json:"totalAfter"`

	// addresses that were not in the store before this run, sorted
	NewAddresses []string `json:"newAddresses,omitempty"`
	Store        string   `json:"store,omitempty"`
	// the store could not be read and the run started from an empty one
	StoreDegraded bool `json:"storeDegraded,omitempty"`

	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
}

type instruments struct {
	runs     metric.Int64Counter
	inserted metric.Int64Counter
	updated  metric.Int64Counter
}

func newInstruments() instruments {
	var out instruments
	var errs []error
	var err error

	out.runs, err = meter.Int64Counter(
		"foreclosures.runs",
		metric.WithDescription("Reconcile runs by county and outcome."),
	)
	errs = append(errs, err)
	out.inserted, err = meter.Int64Counter(
		"foreclosures.records.inserted",
		metric.WithDescription("Listings added to a store."),
	)
	errs = append(errs, err)
	out.updated, err = meter.Int64Counter(
		"foreclosures.records.updated",
		metric.WithDescription("Stored listings overwritten by a newer batch."),
	)
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		slog.Warn("failed to create instruments", "source", "reconciler", "err", err)
	}
	return out
}

type Service struct {
	opts    Options
	metrics instruments
	// one run per county at a time
	locks *sync.Map
}

func NewService(opts Options) Service {
	if opts.ListingUrlTemplate == "" {
		opts.ListingUrlTemplate = listing.DefaultListingUrlTemplate
	}
	if opts.Counties == nil {
		opts.Counties = DefaultCounties()
	}
	return Service{
		opts:    opts,
		metrics: newInstruments(),
		locks:   &sync.Map{},
	}
}

func (s Service) Counties() Counties {
	return s.opts.Counties
}

func (s Service) lock(county string) func() {
	mutex, _ := s.locks.LoadOrStore(county, &sync.Mutex{})
	mutex.(*sync.Mutex).Lock()
	return mutex.(*sync.Mutex).Unlock
}

type run struct {
	span   trace.Span
	report *Report
}

func (r run) fail(err error) error {
	r.span.RecordError(err)
	r.span.SetStatus(codes.Error, err.Error())
	r.span.SetAttributes(
		attribute.String("failed_stage", r.report.Stage.String()),
		attribute.String("kind", listing.KindOf(err).String()),
	)
	return err
}

func (s Service) record(ctx context.Context, report Report, err error) {
	outcome := "ok"
	if err != nil {
		outcome = listing.KindOf(err).String()
	}
	county := attribute.String("county", report.County)
	s.metrics.runs.Add(ctx, 1, metric.WithAttributes(county, attribute.String("outcome", outcome)))
	if err == nil {
		s.metrics.inserted.Add(ctx, int64(report.Inserted), metric.WithAttributes(county))
		s.metrics.updated.Add(ctx, int64(report.Updated), metric.WithAttributes(county))
	}
}

// Reconcile fetches the county's sales page and merges the listings into the
// county's store. On failure the report's Stage is the stage that failed,
// fetch failures keep their kind, an unknown county is a
// listing.KindPrecondition failure raised before any request is made.
func (s Service) Reconcile(ctx context.Context, county string) (report Report, err error) {
	ctx, span := tracer.Start(ctx, "Reconcile")
	defer span.End()
	span.SetAttributes(attribute.String("county", county))

	report = Report{
		County:    county,
		Stage:     StageIdle,
		StartedAt: timezone.Now(),
	}
	defer func() {
		report.Duration = time.Since(report.StartedAt)
		s.record(ctx, report, err)
	}()
	r := run{span: span, report: &report}

	target, ok := s.opts.Counties.Lookup(county)
	if !ok {
		return report, r.fail(listing.Failf(listing.KindPrecondition, "unknown county %q", county))
	}

	unlock := s.lock(county)
	defer unlock()

	report.Stage = StageFetching
	result, err := s.opts.Fetcher.Fetch(ctx, target.PageUrl())
	if err != nil {
		if listing.KindOf(err) == listing.KindGeneric {
			err = listing.Fail(listing.KindScrapeMalformed, err)
		}
		return report, r.fail(err)
	}
	if len(result.Rows) == 0 {
		return report, r.fail(listing.Failf(listing.KindScrapeEmpty, "no listings at %s", target.PageUrl()))
	}
	report.Fetched = len(result.Rows)
	report.Malformed = result.Stats.Malformed

	report.Stage = StageNormalizing
	batch := listing.Normalize(ctx, result.Rows, county)
	report.Batch = batch

	err = s.reconcile(ctx, r, batch)
	if err != nil {
		return report, err
	}

	s.notify(ctx, report)
	return report, nil
}

// Persist merges a batch that was fetched elsewhere into the county's store,
// it is Reconcile without the fetch.
func (s Service) Persist(ctx context.Context, county string, batch []listing.Record) (report Report, err error) {
	ctx, span := tracer.Start(ctx, "Persist")
	defer span.End()
	span.SetAttributes(
		attribute.String("county", county),
		attribute.Int("batch", len(batch)),
	)

	report = Report{
		County:    county,
		Stage:     StageIdle,
		StartedAt: timezone.Now(),
	}
	defer func() {
		report.Duration = time.Since(report.StartedAt)
		s.record(ctx, report, err)
	}()
	r := run{span: span, report: &report}

	if _, ok := s.opts.Counties.Lookup(county); !ok {
		return report, r.fail(listing.Failf(listing.KindPrecondition, "unknown county %q", county))
	}
	if len(batch) == 0 {
		return report, r.fail(listing.Failf(listing.KindPrecondition, "empty batch for %q", county))
	}

	unlock := s.lock(county)
	defer unlock()

	report.Stage = StageNormalizing
	stamped := make([]listing.Record, len(batch))
	for i, rec := range batch {
		if rec.County == "" {
			rec.County = county
		}
		stamped[i] = rec
	}
	report.Batch = stamped

	err = s.reconcile(ctx, r, stamped)
	if err != nil {
		return report, err
	}

	s.notify(ctx, report)
	return report, nil
}

func (s Service) reconcile(ctx context.Context, r run, batch []listing.Record) error {
	report := r.report

	report.Stage = StageLoading
	store := s.opts.StoreFor(report.County)
	report.Store = store.Location()

	existing, err := store.Load(ctx)
	if err != nil {
		slog.WarnContext(
			ctx, "failed to read store, starting from an empty one",
			"source", "reconciler",
			"store", store.Location(),
			"kind", listing.KindOf(err).String(),
			"err", err,
		)
		existing = listing.Index{}
		report.StoreDegraded = true
	}
	report.TotalBefore = len(existing)

	report.Stage = StageMerging
	merged, mergeStats := listing.Merge(existing, batch)
	report.Inserted = mergeStats.Inserted
	report.Updated = mergeStats.Updated
	report.Skipped = mergeStats.Skipped
	for _, rec := range batch {
		key := rec.Key()
		if _, ok := existing[key]; !ok && key != "" {
			report.NewAddresses = append(report.NewAddresses, key)
		}
	}
	report.NewAddresses = dedupeSorted(report.NewAddresses)

	report.Stage = StageDeriving
	derived, deriveStats := listing.DeriveListingUrls(ctx, merged, s.opts.ListingUrlTemplate)
	report.Derived = deriveStats.Derived
	report.DeriveFailed = deriveStats.Failed

	report.Stage = StagePersisting
	err = store.Save(ctx, derived)
	if err != nil {
		return r.fail(listing.Fail(listing.KindGeneric, err))
	}
	report.TotalAfter = len(derived)

	report.Stage = StageDone
	slog.InfoContext(
		ctx, "reconciled store",
		"source", "reconciler",
		"county", report.County,
		"store", report.Store,
		"inserted", report.Inserted,
		"updated", report.Updated,
		"derived", report.Derived,
		"total", report.TotalAfter,
	)
	return nil
}

func dedupeSorted(values []string) []string {
	slices.Sort(values)
	return slices.Compact(values)
}

func (s Service) notify(ctx context.Context, report Report) {
	if s.opts.Notifier == nil {
		return
	}
	err := s.opts.Notifier.Notify(ctx, report)
	if err != nil {
		slog.WarnContext(ctx, "failed to send run notification", "source", "reconciler", "county", report.County, "err", err)
	}
}

// Run is Reconcile for callers that only care whether it worked, failures
// are logged.
func (s Service) Run(ctx context.Context, county string) bool {
	report, err := s.Reconcile(ctx, county)
	if err != nil {
		slog.ErrorContext(
			ctx, "reconcile failed",
			"source", "reconciler",
			"county", county,
			"stage", report.Stage,
			"kind", listing.KindOf(err).String(),
			"retryable", listing.Retryable(err),
			"err", err,
		)
		return false
	}
	return true
}
