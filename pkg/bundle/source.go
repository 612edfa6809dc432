package bundle

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

//go:embed data/monza-2023.json
var embedded []byte

// Source provides the raw bundle document
type Source interface {
	Read(ctx context.Context) ([]byte, error)
	String() string
}

type embeddedSource struct{}

func (embeddedSource) Read(context.Context) ([]byte, error) { return embedded, nil }
func (embeddedSource) String() string                       { return "embedded" }

type fileSource string

func (f fileSource) Read(context.Context) ([]byte, error) { return os.ReadFile(string(f)) }
func (f fileSource) String() string                       { return string(f) }

type urlSource struct {
	url    string
	client *http.Client
}

func (u urlSource) String() string { return u.url }

func (u urlSource) Read(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.url, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", u.url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Embedded returns the bundle compiled into the binary (Monza 2023 race)
func Embedded() Source { return embeddedSource{} }

func FromFile(path string) Source { return fileSource(path) }

// FromURL fetches the bundle via http. A nil client uses an instrumented
// default client.
func FromURL(url string, client *http.Client) Source {
	if client == nil {
		client = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   30 * time.Second,
		}
	}
	return urlSource{url: url, client: client}
}

// ParseSource maps the configured source to an implementation.
// "" and "embedded" select the embedded bundle, http(s) URLs are fetched,
// anything else is treated as file path.
func ParseSource(location string) Source {
	switch {
	case location == "" || location == "embedded":
		return Embedded()
	case IsURL(location):
		return FromURL(location, nil)
	default:
		return FromFile(location)
	}
}

func IsURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
