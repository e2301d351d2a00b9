package reconciler

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	configlibsql "foreclosure-backend/lib/configutil/libsql"
	"foreclosure-backend/lib/listing"
	"foreclosure-backend/lib/listingstore"
	"foreclosure-backend/lib/restyutil"
	"foreclosure-backend/lib/scrapers/sheriffsale"
)

const (
	FetchChrome = "chrome"
	FetchHttp   = "http"
)

type FetcherConfig struct {
	// "chrome" (default) or "http"
	Mode           string `json:"mode"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	UserAgent      string `json:"user_agent"`
	// show the browser window, chrome mode only
	Headful    bool   `json:"headful"`
	ChromePath string `json:"chrome_path"`
	// http mode only
	CloudflareBypass bool                `json:"cloudflare_bypass"`
	Layout           *sheriffsale.Layout `json:"layout"`
}

type ServerConfig struct {
	Port        int    `json:"port"`
	AccessToken string `json:"access_token"`
}

type Config struct {
	DownloadsDir string `json:"downloads_dir"`
	// replaces the built in table when set
	Counties           Counties            `json:"counties"`
	ListingUrlTemplate string              `json:"listing_url_template"`
	Fetcher            FetcherConfig       `json:"fetcher"`
	Mirror             configlibsql.Struct `json:"mirror"`
	Smtp               SmtpConfig          `json:"smtp"`
	Server             ServerConfig        `json:"server"`
}

func DefaultConfig() Config {
	return Config{
		DownloadsDir:       "downloads",
		ListingUrlTemplate: listing.DefaultListingUrlTemplate,
		Fetcher: FetcherConfig{
			Mode:           FetchChrome,
			TimeoutSeconds: int(sheriffsale.DefaultTimeout / time.Second),
		},
		Server: ServerConfig{Port: 8444},
	}
}

func (c Config) LogFile() string {
	return filepath.Join(c.DownloadsDir, "logs", "foreclosures.log")
}

func (c Config) CountyTable() Counties {
	if len(c.Counties) == 0 {
		return DefaultCounties()
	}
	return c.Counties
}

func (c Config) Layout() sheriffsale.Layout {
	if c.Fetcher.Layout == nil {
		return sheriffsale.DefaultLayout()
	}
	return *c.Fetcher.Layout
}

func (c Config) Validate() error {
	if c.DownloadsDir == "" {
		return fmt.Errorf("downloads_dir must be set")
	}
	switch c.Fetcher.Mode {
	case FetchChrome, FetchHttp:
	default:
		return fmt.Errorf("unknown fetcher mode %q", c.Fetcher.Mode)
	}
	_, err := listing.ListingUrl(c.ListingUrlTemplate, "1 Main St")
	if err != nil {
		return fmt.Errorf("listing_url_template: %w", err)
	}
	for name, county := range c.CountyTable() {
		if county.Id <= 0 && county.Url == "" {
			return fmt.Errorf("county %q needs an id or a url", name)
		}
	}
	return nil
}

func (c Config) Browser() sheriffsale.Browser {
	timeout := time.Duration(c.Fetcher.TimeoutSeconds) * time.Second

	if c.Fetcher.Mode == FetchHttp {
		opts := sheriffsale.HttpOptions{
			UserAgent:        c.Fetcher.UserAgent,
			Timeout:          timeout,
			CloudflareBypass: c.Fetcher.CloudflareBypass,
		}
		output, err := restyutil.NewFilesystemOutput("<dev_state>/resty")
		if err != nil {
			slog.Debug("http dumps disabled", "source", "fetcher", "err", err)
		} else {
			opts.Output = output
		}
		return sheriffsale.NewHttpBrowser(opts)
	}

	return sheriffsale.NewChromeBrowser(sheriffsale.ChromeOptions{
		Headless:  !c.Fetcher.Headful,
		UserAgent: c.Fetcher.UserAgent,
		Timeout:   timeout,
		ExecPath:  c.Fetcher.ChromePath,
	})
}

// Stores returns the store of every county, a csv file in the downloads
// directory mirrored to database when it is not nil.
func (c Config) Stores(database *sql.DB) func(county string) listingstore.Store {
	return func(county string) listingstore.Store {
		primary := listingstore.NewCSVStore(listingstore.CSVPath(c.DownloadsDir, county))
		if database == nil {
			return primary
		}
		return listingstore.Multi{
			Primary: primary,
			Mirrors: []listingstore.Store{
				listingstore.NewSQLStore(database, listingstore.CountySlug(county), c.Mirror.Location()),
			},
		}
	}
}

// OpenMirror opens and migrates the mirror database, it returns nil when no
// mirror is configured.
func (c Config) OpenMirror(ctx context.Context) (*sql.DB, error) {
	if !c.Mirror.Enabled() {
		return nil, nil
	}
	database, err := c.Mirror.OpenDB()
	if err != nil {
		return nil, err
	}
	err = listingstore.Migrate(ctx, database)
	if err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// Open builds the service described by the config, cleanup must be called
// once the service is no longer used.
func Open(ctx context.Context, c Config) (Service, func() error, error) {
	err := c.Validate()
	if err != nil {
		return Service{}, nil, err
	}

	mirror, err := c.OpenMirror(ctx)
	if err != nil {
		return Service{}, nil, fmt.Errorf("open mirror: %w", err)
	}

	opts := Options{
		Counties:           c.CountyTable(),
		Fetcher:            sheriffsale.NewFetcher(c.Browser(), c.Layout()),
		StoreFor:           c.Stores(mirror),
		ListingUrlTemplate: c.ListingUrlTemplate,
	}
	if c.Smtp.Enabled() {
		opts.Notifier = NewEmailNotifier(c.Smtp)
	}

	cleanup := func() error {
		if mirror == nil {
			return nil
		}
		return mirror.Close()
	}
	return NewService(opts), cleanup, nil
}
