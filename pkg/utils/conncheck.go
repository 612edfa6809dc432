package utils

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/mpapenbr/f1viz-service-go/log"
)

const (
	tcpPollInterval  = 200 * time.Millisecond
	httpPollInterval = 500 * time.Millisecond
)

// WaitForTCP polls addr until a tcp connection can be established
func WaitForTCP(ctx context.Context, addr string, timeout time.Duration) error {
	var d net.Dialer
	return waitFor(ctx, addr, timeout, tcpPollInterval, func(ctx context.Context) error {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		return conn.Close()
	})
}

// WaitForHTTPResponse polls target until it answers a GET request with a
// status below 500.
func WaitForHTTPResponse(ctx context.Context, target string, timeout time.Duration) error {
	cli := &http.Client{Timeout: httpPollInterval * 4}
	return waitFor(ctx, target, timeout, httpPollInterval, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
		if err != nil {
			return err
		}
		resp, err := cli.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		return nil
	})
}

//nolint:whitespace // editor/linter issue
func waitFor(
	ctx context.Context,
	what string,
	timeout, interval time.Duration,
	probe func(ctx context.Context) error,
) error {
	start := time.Now()
	log.Debug("waiting for service",
		log.String("target", what),
		log.Duration("timeout", timeout))
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var lastErr error
	for {
		if lastErr = probe(waitCtx); lastErr == nil {
			log.Debug("service available",
				log.String("target", what),
				log.Duration("duration", time.Since(start)))
			return nil
		}
		select {
		case <-waitCtx.Done():
			return fmt.Errorf("%s could not be reached after %v: %w", what, timeout, lastErr)
		case <-ticker.C:
		}
	}
}

// ExtractFromHTTPURL returns host:port of an http(s) url or "" for anything
// else. The port defaults to 80 resp. 443.
func ExtractFromHTTPURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	defaultPorts := map[string]string{"http": "80", "https": "443"}
	port, ok := defaultPorts[u.Scheme]
	if !ok {
		return ""
	}
	if u.Port() != "" {
		port = u.Port()
	}
	return net.JoinHostPort(u.Hostname(), port)
}
