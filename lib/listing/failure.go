package listing

import (
	"errors"
	"fmt"
)

// Kind tags a failed operation so callers can branch on it instead of
// matching error strings.
type Kind int

const (
	KindGeneric Kind = iota
	// the page failed to respond or the table never appeared in time,
	// worth retrying.
	KindNetworkTimeout
	// the page loaded but had no listing rows.
	KindScrapeEmpty
	// the page loaded but the expected structure could not be extracted.
	KindScrapeMalformed
	// the persisted store could not be read, callers degrade to an empty store.
	KindStoreReadFailed
	// the run was rejected before doing any work (ex. an unknown county).
	KindPrecondition
)

func (k Kind) String() string {
	switch k {
	case KindNetworkTimeout:
		return "network_timeout"
	case KindScrapeEmpty:
		return "scrape_empty"
	case KindScrapeMalformed:
		return "scrape_malformed"
	case KindStoreReadFailed:
		return "store_read_failed"
	case KindPrecondition:
		return "precondition"
	default:
		return "generic"
	}
}

type Failure struct {
	Kind Kind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Kind.String()
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Err.Error())
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func Fail(kind Kind, err error) error {
	return &Failure{Kind: kind, Err: err}
}

func Failf(kind Kind, format string, args ...any) error {
	return &Failure{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost Failure in err's chain,
// KindGeneric for any other non-nil error.
func KindOf(err error) Kind {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Kind
	}
	return KindGeneric
}

// Retryable reports whether an invoker may reasonably try the same run again.
func Retryable(err error) bool {
	return KindOf(err) == KindNetworkTimeout
}
