package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Listing struct {
	Store      string
	Address    string
	Defendant  string
	Plaintiff  string
	Attorney   string
	Price      sql.NullFloat64
	Status     string
	SaleDate   string
	DetailUrl  string
	County     string
	ListingUrl string
	UpdatedAt  int64
}

const deleteListings = `
delete from listing where store = ?
`

func (q *Queries) DeleteListings(ctx context.Context, store string) error {
	_, err := q.db.ExecContext(ctx, deleteListings, store)
	return err
}

const insertListing = `
insert into listing (
    store, address, defendant, plaintiff, attorney, price,
    status, sale_date, detail_url, county, listing_url, updated_at
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertListing(ctx context.Context, arg Listing) error {
	_, err := q.db.ExecContext(ctx, insertListing,
		arg.Store,
		arg.Address,
		arg.Defendant,
		arg.Plaintiff,
		arg.Attorney,
		arg.Price,
		arg.Status,
		arg.SaleDate,
		arg.DetailUrl,
		arg.County,
		arg.ListingUrl,
		arg.UpdatedAt,
	)
	return err
}

const getListings = `
select
    store, address, defendant, plaintiff, attorney, price,
    status, sale_date, detail_url, county, listing_url, updated_at
from listing
where store = ?
order by address
`

func (q *Queries) GetListings(ctx context.Context, store string) ([]Listing, error) {
	rows, err := q.db.QueryContext(ctx, getListings, store)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Listing
	for rows.Next() {
		var i Listing
		err := rows.Scan(
			&i.Store,
			&i.Address,
			&i.Defendant,
			&i.Plaintiff,
			&i.Attorney,
			&i.Price,
			&i.Status,
			&i.SaleDate,
			&i.DetailUrl,
			&i.County,
			&i.ListingUrl,
			&i.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
