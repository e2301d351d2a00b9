package sheriffsale

import (
	"context"
	"errors"
	"foreclosure-backend/lib/listing"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type staticBrowser struct {
	html string
	err  error
}

func (b staticBrowser) Render(ctx context.Context, pageUrl, waitSelector string) (string, error) {
	return b.html, b.err
}

func TestFetch(t *testing.T) {
	fetcher := NewFetcher(staticBrowser{html: salesPage}, DefaultLayout())

	result, err := fetcher.Fetch(context.Background(), pageUrl)
	require.NoError(t, err)
	require.Len(t, result.Rows, 3)
	require.Equal(t, 1, result.Stats.Malformed)
}

func TestFetchFailures(t *testing.T) {
	testCases := []struct {
		name    string
		browser staticBrowser
		kind    listing.Kind
	}{
		{
			name:    "timeout",
			browser: staticBrowser{err: listing.Fail(listing.KindNetworkTimeout, context.DeadlineExceeded)},
			kind:    listing.KindNetworkTimeout,
		},
		{
			name:    "unclassified browser error",
			browser: staticBrowser{err: errors.New("websocket closed")},
			kind:    listing.KindScrapeMalformed,
		},
		{
			name:    "no table",
			browser: staticBrowser{html: "<html><body>down for maintenance</body></html>"},
			kind:    listing.KindScrapeMalformed,
		},
		{
			name:    "empty table",
			browser: staticBrowser{html: emptyPage},
			kind:    listing.KindScrapeEmpty,
		},
	}

	for _, test := range testCases {
		fetcher := NewFetcher(test.browser, DefaultLayout())
		_, err := fetcher.Fetch(context.Background(), pageUrl)
		require.Error(t, err, test.name)
		require.Equal(t, test.kind, listing.KindOf(err), test.name)
	}
}

func TestHttpBrowser(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/Sales/SalesSearch", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != DefaultUserAgent {
			http.Error(w, "unexpected user agent", http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(salesPage))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(salesPage))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/maintenance", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>down for maintenance</body></html>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	browser := NewHttpBrowser(HttpOptions{Timeout: 100 * time.Millisecond})
	fetcher := NewFetcher(browser, DefaultLayout())

	result, err := fetcher.Fetch(context.Background(), server.URL+"/Sales/SalesSearch?countyId=9")
	require.NoError(t, err)
	require.Len(t, result.Rows, 3)
	require.Equal(t, server.URL+"/Sales/SaleDetails?PropertyId=1001", result.Rows[0].DetailUrl)

	_, err = fetcher.Fetch(context.Background(), server.URL+"/slow")
	require.Equal(t, listing.KindNetworkTimeout, listing.KindOf(err))

	_, err = fetcher.Fetch(context.Background(), server.URL+"/missing")
	require.Equal(t, listing.KindNetworkTimeout, listing.KindOf(err))

	_, err = fetcher.Fetch(context.Background(), server.URL+"/maintenance")
	require.Equal(t, listing.KindNetworkTimeout, listing.KindOf(err))
}
