package listing

import (
	"slices"
	"strings"
)

// Record is one sheriff sale entry. Address is the natural key, string
// fields are "absent" when empty, Price is absent when nil.
type Record struct {
	Address   string   `json:"address"`
	Defendant string   `json:"defendant,omitempty"`
	Plaintiff string   `json:"plaintiff,omitempty"`
	Attorney  string   `json:"attorney,omitempty"`
	Price     *float64 `json:"price,omitempty"`
	Status    string   `json:"status,omitempty"`
	// free text, the county's own date format is preserved
	SaleDate  string `json:"saleDate,omitempty"`
	DetailUrl string `json:"detailUrl,omitempty"`
	County    string `json:"county,omitempty"`
	// derived once from Address and never overwritten afterwards
	ListingUrl string `json:"listingUrl,omitempty"`
}

func Price(v float64) *float64 {
	return &v
}

// Key is the merge identity of the record.
func (r Record) Key() string {
	return Key(r.Address)
}

func Key(address string) string {
	return strings.TrimSpace(address)
}

// Index is the keyed form of a store, one record per address.
type Index map[string]Record

func (idx Index) Clone() Index {
	out := make(Index, len(idx))
	for k, v := range idx {
		if v.Price != nil {
			v.Price = Price(*v.Price)
		}
		out[k] = v
	}
	return out
}

// Sorted returns the records ordered by address.
func (idx Index) Sorted() []Record {
	keys := make([]string, 0, len(idx))
	for k := range idx {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]Record, len(keys))
	for i, k := range keys {
		out[i] = idx[k]
	}
	return out
}

// IndexOf builds an index from a list, later records win on duplicate addresses.
func IndexOf(records []Record) Index {
	idx := make(Index, len(records))
	for _, r := range records {
		key := r.Key()
		if key == "" {
			continue
		}
		r.Address = key
		idx[key] = r
	}
	return idx
}
