// Package source loads the wide deaths CSV from an HTTP URL or a local file.
package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/okian/covidtrend/pkg/logger"
)

const (
	defaultTimeout   = 30 * time.Second
	errorBodyPreview = 200
	filePrefix       = "file://"
)

// RawTable is the decoded CSV: the header row and every data record.
type RawTable struct {
	Header  []string
	Records [][]string
}

// Fetcher loads a RawTable from a location.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
	logger  logger.Logger
}

// Option applies a configuration option to the Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithTimeout bounds a single fetch, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  &http.Client{},
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch reads and decodes the CSV at location. http(s) URLs are downloaded;
// anything else is treated as a path, with an optional file:// prefix.
func (f *Fetcher) Fetch(ctx context.Context, location string) (*RawTable, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("%w: empty location", ErrFetch)
	}

	var (
		body []byte
		err  error
	)
	if isHTTP(location) {
		body, err = f.download(ctx, location)
	} else {
		body, err = readFile(location)
	}
	if err != nil {
		return nil, err
	}

	table, err := Decode(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if f.logger != nil {
		f.logger.Debug(ctx, "source decoded",
			logger.String("location", location),
			logger.Int("bytes", len(body)),
			logger.Int("columns", len(table.Header)),
			logger.Int("records", len(table.Records)),
		)
	}
	return table, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrFetch, err)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrFetch, url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrFetch, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s returned %d: %s", ErrStatus, url, resp.StatusCode, truncate(body, errorBodyPreview))
	}
	return body, nil
}

func readFile(location string) ([]byte, error) {
	path := strings.TrimPrefix(location, filePrefix)
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return body, nil
}

// Decode parses CSV text into a RawTable. Every record must have as many
// fields as the header.
func Decode(r io.Reader) (*RawTable, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrDecode, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		records = append(records, rec)
	}

	return &RawTable{Header: header, Records: records}, nil
}

func isHTTP(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
