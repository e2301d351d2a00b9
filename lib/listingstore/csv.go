package listingstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"foreclosure-backend/lib/listing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type column struct {
	header  string
	aliases []string
	get     func(r listing.Record) string
	set     func(r *listing.Record, value string)
}

func stringColumn(header string, field func(r *listing.Record) *string, aliases ...string) column {
	return column{
		header:  header,
		aliases: aliases,
		get: func(r listing.Record) string {
			return *field(&r)
		},
		set: func(r *listing.Record, value string) {
			*field(r) = value
		},
	}
}

func formatPrice(price *float64) string {
	if price == nil {
		return ""
	}
	return strconv.FormatFloat(*price, 'f', -1, 64)
}

// columns in the order they are written.
var columns = []column{
	stringColumn("Address", func(r *listing.Record) *string { return &r.Address }),
	stringColumn("Defendant", func(r *listing.Record) *string { return &r.Defendant }),
	stringColumn("Plaintiff", func(r *listing.Record) *string { return &r.Plaintiff }),
	stringColumn("Attorney", func(r *listing.Record) *string { return &r.Attorney }),
	{
		header:  "Price",
		aliases: []string{"upset price", "approx judgment"},
		get: func(r listing.Record) string {
			return formatPrice(r.Price)
		},
		// set is replaced in readRecords, price cells are validated there.
	},
	stringColumn("Status", func(r *listing.Record) *string { return &r.Status }),
	stringColumn("Sale Date", func(r *listing.Record) *string { return &r.SaleDate }),
	stringColumn("Details", func(r *listing.Record) *string { return &r.DetailUrl }, "detail url", "details url"),
	stringColumn("County", func(r *listing.Record) *string { return &r.County }),
	stringColumn("Zillow Link", func(r *listing.Record) *string { return &r.ListingUrl }, "listing url"),
}

const priceColumn = 4

func headerKey(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		switch r {
		case ' ', '_', '-', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var columnByHeader = func() map[string]int {
	out := map[string]int{}
	for i, c := range columns {
		out[headerKey(c.header)] = i
		for _, a := range c.aliases {
			out[headerKey(a)] = i
		}
	}
	return out
}()

// CSVStore keeps a county's listings in a single csv file with a display
// header. Columns are matched by header name on read, unknown columns are
// ignored.
type CSVStore struct {
	path string
}

func NewCSVStore(path string) CSVStore {
	return CSVStore{path: path}
}

func (s CSVStore) Location() string {
	return s.path
}

func (s CSVStore) Load(ctx context.Context) (listing.Index, error) {
	ctx, span := tracer.Start(ctx, "csv:Load")
	defer span.End()
	span.SetAttributes(attribute.String("path", s.path))

	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		slog.DebugContext(ctx, "store does not exist yet", "source", "store", "path", s.path)
		return listing.Index{}, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open store")
		return nil, listing.Fail(listing.KindStoreReadFailed, err)
	}
	defer f.Close()

	records, err := readRecords(ctx, f)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read store")
		return nil, listing.Fail(listing.KindStoreReadFailed, fmt.Errorf("%s: %w", s.path, err))
	}
	span.SetAttributes(attribute.Int("records", len(records)))
	return listing.IndexOf(records), nil
}

func readRecords(ctx context.Context, r io.Reader) ([]listing.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	positions := make([]int, len(header))
	hasAddress := false
	for i, h := range header {
		idx, ok := columnByHeader[headerKey(h)]
		if !ok {
			positions[i] = -1
			continue
		}
		positions[i] = idx
		if idx == 0 {
			hasAddress = true
		}
	}
	if !hasAddress {
		return nil, errors.New("header has no address column")
	}

	var out []listing.Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		var rec listing.Record
		for i, cell := range row {
			if i >= len(positions) || positions[i] < 0 {
				continue
			}
			if positions[i] == priceColumn {
				rec.Price = readPrice(ctx, line, cell)
				continue
			}
			columns[positions[i]].set(&rec, cell)
		}
		if listing.Key(rec.Address) == "" {
			slog.WarnContext(ctx, "skipping stored row without an address", "source", "store", "line", line)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// an unreadable price cell only loses that cell.
func readPrice(ctx context.Context, line int, cell string) *float64 {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	value, err := listing.ParsePrice(cell)
	if err != nil {
		slog.WarnContext(ctx, "ignoring unreadable stored price", "source", "store", "line", line, "price", cell, "err", err)
		return nil
	}
	return listing.Price(value)
}

func writeRecords(w io.Writer, idx listing.Index) error {
	writer := csv.NewWriter(w)

	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = c.header
	}
	err := writer.Write(header)
	if err != nil {
		return err
	}

	row := make([]string, len(columns))
	for _, rec := range idx.Sorted() {
		for i, c := range columns {
			row[i] = c.get(rec)
		}
		err = writer.Write(row)
		if err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// Save writes the full index to a temporary file next to the store and
// renames it over the store.
func (s CSVStore) Save(ctx context.Context, idx listing.Index) error {
	ctx, span := tracer.Start(ctx, "csv:Save")
	defer span.End()
	span.SetAttributes(
		attribute.String("path", s.path),
		attribute.Int("records", len(idx)),
	)

	err := s.save(idx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write store")
		return err
	}
	slog.DebugContext(ctx, "wrote store", "source", "store", "path", s.path, "records", len(idx))
	return nil
}

func (s CSVStore) save(idx listing.Index) error {
	dir := filepath.Dir(s.path)
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	err = writeRecords(tmp, idx)
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Sync()
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Close()
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
