package sheriffsale

import (
	"context"
	"errors"
	"fmt"
	"foreclosure-backend/lib/listing"
	"foreclosure-backend/lib/restyutil"
	"log/slog"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/go-resty/resty/v2"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

const DefaultTimeout = 10 * time.Second

// Browser loads a page and returns its html once waitSelector is present.
// Failures to reach the page or to see the selector in time are returned as
// listing.KindNetworkTimeout.
type Browser interface {
	Render(ctx context.Context, pageUrl, waitSelector string) (string, error)
}

type ChromeOptions struct {
	Headless  bool
	UserAgent string
	// bounds navigation and the wait for waitSelector separately
	Timeout time.Duration
	// chrome binary, empty to let chromedp find one
	ExecPath string
}

// ChromeBrowser renders pages in a fresh headless chrome per call.
type ChromeBrowser struct {
	opts ChromeOptions
}

func NewChromeBrowser(opts ChromeOptions) ChromeBrowser {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return ChromeBrowser{opts: opts}
}

func (b ChromeBrowser) Render(ctx context.Context, pageUrl, waitSelector string) (string, error) {
	ctx, span := tracer.Start(ctx, "ChromeBrowser.Render")
	defer span.End()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(b.opts.UserAgent),
	)
	if b.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(
		allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			slog.DebugContext(ctx, fmt.Sprintf(format, args...), "source", "fetcher")
		}),
	)
	defer cancelBrowser()

	// starts the browser without a deadline, a timeout on the first Run
	// would kill the browser along with it
	err := chromedp.Run(browserCtx)
	if err != nil {
		return "", listing.Fail(listing.KindScrapeMalformed, fmt.Errorf("start browser: %w", err))
	}

	navCtx, cancelNav := context.WithTimeout(browserCtx, b.opts.Timeout)
	defer cancelNav()
	err = chromedp.Run(navCtx, chromedp.Navigate(pageUrl))
	if err != nil {
		return "", listing.Fail(listing.KindNetworkTimeout, fmt.Errorf("navigate to %s: %w", pageUrl, err))
	}

	waitCtx, cancelWait := context.WithTimeout(browserCtx, b.opts.Timeout)
	defer cancelWait()
	err = chromedp.Run(waitCtx, chromedp.WaitReady(waitSelector, chromedp.ByQuery))
	if errors.Is(err, context.DeadlineExceeded) {
		return "", listing.Fail(listing.KindNetworkTimeout, fmt.Errorf("waiting for %q: %w", waitSelector, err))
	}
	if err != nil {
		return "", listing.Fail(listing.KindScrapeMalformed, fmt.Errorf("waiting for %q: %w", waitSelector, err))
	}

	var html string
	err = chromedp.Run(browserCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	if err != nil {
		return "", listing.Fail(listing.KindScrapeMalformed, fmt.Errorf("read page html: %w", err))
	}
	return html, nil
}

type HttpOptions struct {
	UserAgent        string
	Timeout          time.Duration
	CloudflareBypass bool
	// dump requests and responses here when debug logging is on, may be nil
	Output restyutil.InstrumentOutput
}

// HttpBrowser fetches pages without running their scripts, it is enough
// for county sites that render the sales table on the server. A page that
// loads without waitSelector is treated like a chrome wait that ran out.
type HttpBrowser struct {
	client *resty.Client
}

func NewHttpBrowser(opts HttpOptions) HttpBrowser {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetHeader("user-agent", opts.UserAgent)
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	restyutil.InstrumentClient(client, tracer, opts.Output)

	return HttpBrowser{client: client}
}

func (b HttpBrowser) Render(ctx context.Context, pageUrl, waitSelector string) (string, error) {
	res, err := b.client.R().
		SetContext(ctx).
		Get(pageUrl)
	if err != nil {
		return "", listing.Fail(listing.KindNetworkTimeout, fmt.Errorf("get %s: %w", pageUrl, err))
	}
	if res.IsError() {
		return "", listing.Failf(listing.KindNetworkTimeout, "get %s: unexpected status %s", pageUrl, res.Status())
	}

	html := res.String()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", listing.Fail(listing.KindScrapeMalformed, fmt.Errorf("parse %s: %w", pageUrl, err))
	}
	if doc.Find(waitSelector).Length() == 0 {
		return "", listing.Failf(listing.KindNetworkTimeout, "waiting for %q: not on %s", waitSelector, pageUrl)
	}
	return html, nil
}
