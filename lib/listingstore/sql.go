package listingstore

import (
	"context"
	"database/sql"
	"time"

	"foreclosure-backend/lib/listing"
	"foreclosure-backend/lib/listingstore/db"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// SQLStore keeps listings in the shared listing table, rows are namespaced by
// store name so several counties can share one database.
type SQLStore struct {
	db       *sql.DB
	qry      *db.Queries
	name     string
	location string
}

func NewSQLStore(database *sql.DB, name, location string) SQLStore {
	return SQLStore{
		db:       database,
		qry:      db.New(database),
		name:     name,
		location: location,
	}
}

// Migrate creates the listing table if it does not exist.
func Migrate(ctx context.Context, database *sql.DB) error {
	_, err := database.ExecContext(ctx, db.Schema)
	return err
}

func (s SQLStore) Location() string {
	return s.location + "#" + s.name
}

func (s SQLStore) Load(ctx context.Context) (listing.Index, error) {
	ctx, span := tracer.Start(ctx, "sql:Load")
	defer span.End()
	span.SetAttributes(attribute.String("store", s.name))

	rows, err := s.qry.GetListings(ctx, s.name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query listings")
		return nil, listing.Fail(listing.KindStoreReadFailed, err)
	}

	records := make([]listing.Record, len(rows))
	for i, r := range rows {
		rec := listing.Record{
			Address:    r.Address,
			Defendant:  r.Defendant,
			Plaintiff:  r.Plaintiff,
			Attorney:   r.Attorney,
			Status:     r.Status,
			SaleDate:   r.SaleDate,
			DetailUrl:  r.DetailUrl,
			County:     r.County,
			ListingUrl: r.ListingUrl,
		}
		if r.Price.Valid {
			rec.Price = listing.Price(r.Price.Float64)
		}
		records[i] = rec
	}
	return listing.IndexOf(records), nil
}

func (s SQLStore) Save(ctx context.Context, idx listing.Index) error {
	ctx, span := tracer.Start(ctx, "sql:Save")
	defer span.End()
	span.SetAttributes(
		attribute.String("store", s.name),
		attribute.Int("records", len(idx)),
	)

	err := s.save(ctx, idx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write listings")
		return err
	}
	return nil
}

func (s SQLStore) save(ctx context.Context, idx listing.Index) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	err = txqry.DeleteListings(ctx, s.name)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	for _, rec := range idx.Sorted() {
		row := db.Listing{
			Store:      s.name,
			Address:    rec.Address,
			Defendant:  rec.Defendant,
			Plaintiff:  rec.Plaintiff,
			Attorney:   rec.Attorney,
			Status:     rec.Status,
			SaleDate:   rec.SaleDate,
			DetailUrl:  rec.DetailUrl,
			County:     rec.County,
			ListingUrl: rec.ListingUrl,
			UpdatedAt:  now,
		}
		if rec.Price != nil {
			row.Price = sql.NullFloat64{Float64: *rec.Price, Valid: true}
		}
		err = txqry.InsertListing(ctx, row)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}
