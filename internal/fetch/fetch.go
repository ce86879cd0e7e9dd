// Package fetch retrieves model bytes from HTTP(S) URLs or local files
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v3/client"
	"github.com/mitchellh/go-homedir"
)

// StatusError reports a non-2xx HTTP response
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Status)
}

// HTTPStatus returns the response status code
func (e *StatusError) HTTPStatus() int {
	return e.Status
}

// Options configures a Fetcher
type Options struct {
	// BaseDir resolves relative file locations, defaults to the working directory
	BaseDir string
	Timeout time.Duration
	Log     *slog.Logger
}

// Fetcher loads model bytes
type Fetcher struct {
	client  *client.Client
	baseDir string
	timeout time.Duration
	log     *slog.Logger
}

// New creates a fetcher
func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	return &Fetcher{
		client:  client.New(),
		baseDir: opts.BaseDir,
		timeout: opts.Timeout,
		log:     opts.Log.With("component", "fetch"),
	}
}

// Fetch returns the bytes at location. http and https URLs are downloaded,
// file URLs and plain paths are read from disk.
func (f *Fetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if scheme(location) == "http" || scheme(location) == "https" {
		return f.download(ctx, location)
	}
	return f.readFile(ctx, location)
}

// scheme returns the lower case URL scheme of location, "" for plain paths
func scheme(location string) string {
	u, err := url.Parse(location)
	if err != nil {
		return ""
	}
	return u.Scheme
}

func (f *Fetcher) download(ctx context.Context, location string) ([]byte, error) {
	start := time.Now()
	resp, err := f.client.Get(location, client.Config{Ctx: ctx, Timeout: f.timeout})
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", location, err)
	}
	defer resp.Close()

	if status := resp.StatusCode(); status < 200 || status > 299 {
		return nil, &StatusError{URL: location, Status: status}
	}
	// the response buffer is recycled on Close
	data := bytes.Clone(resp.Body())
	f.log.Debug("downloaded", "url", location, "bytes", len(data), "took", time.Since(start))
	return data, nil
}

func (f *Fetcher) readFile(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := f.Resolve(location)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Resolve turns a local location into a file path. It returns "" without
// error for remote URLs.
func (f *Fetcher) Resolve(location string) (string, error) {
	path := location
	switch scheme(location) {
	case "http", "https":
		return "", nil
	case "file":
		u, err := url.Parse(location)
		if err != nil {
			return "", fmt.Errorf("invalid file URL %q: %w", location, err)
		}
		path = u.Path
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand %q: %w", location, err)
	}
	if !filepath.IsAbs(path) && f.baseDir != "" {
		path = filepath.Join(f.baseDir, path)
	}
	return filepath.Clean(path), nil
}
