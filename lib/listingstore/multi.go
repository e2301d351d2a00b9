package listingstore

import (
	"context"
	"log/slog"

	"foreclosure-backend/lib/listing"
)

// Multi reads from Primary and writes to Primary followed by every mirror.
// Only the primary decides the outcome of Save, mirror failures are logged.
type Multi struct {
	Primary Store
	Mirrors []Store
}

func (m Multi) Location() string {
	return m.Primary.Location()
}

func (m Multi) Load(ctx context.Context) (listing.Index, error) {
	return m.Primary.Load(ctx)
}

func (m Multi) Save(ctx context.Context, idx listing.Index) error {
	err := m.Primary.Save(ctx, idx)
	if err != nil {
		return err
	}
	for _, mirror := range m.Mirrors {
		err := mirror.Save(ctx, idx)
		if err != nil {
			slog.WarnContext(
				ctx, "failed to update mirror",
				"source", "store",
				"mirror", mirror.Location(),
				"err", err,
			)
		}
	}
	return nil
}
