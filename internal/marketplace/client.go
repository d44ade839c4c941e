// Package marketplace talks to the plugin marketplace API: streamed archive
// downloads and per-version install permission checks.
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/soyeahso/pluginctl/internal/logging"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

// ChunkSize is the read size used while streaming an archive to disk.
const ChunkSize = 8 * 1024

// ErrEmptyDownload is returned when the server sent a zero-byte archive.
var ErrEmptyDownload = errors.New("downloaded file is empty")

// Options configures a Client.
type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration // applies to each download
	Retries int
}

// Client is a marketplace API client.
type Client struct {
	base    string
	timeout time.Duration
	http    *retryablehttp.Client
	log     *logging.Logger
}

// NewClient creates a client. Requests carry the token as a bearer credential.
func NewClient(opts Options, log *logging.Logger) *Client {
	l := log.Sub("marketplace")

	var transport http.RoundTripper = cleanhttp.DefaultPooledTransport()
	if opts.Token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token, TokenType: "Bearer"}),
			Base:   transport,
		}
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Transport: transport}
	rc.RetryMax = opts.Retries
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.Logger = leveledLogger{l}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}

	return &Client{
		base:    strings.TrimRight(opts.BaseURL, "/") + "/api",
		timeout: timeout,
		http:    rc,
		log:     l,
	}
}

// Download streams the archive for a plugin version into dest and returns the
// number of bytes written.
func (c *Client) Download(ctx context.Context, pluginID, version, dest string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := fmt.Sprintf("%s/plugins/%s/download", c.base, url.PathEscape(pluginID))
	if version != "" {
		u += "?" + url.Values{"version": {version}}.Encode()
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	c.log.Debug().Str("pluginId", pluginID).Str("version", version).Msg("downloading plugin")
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("downloading plugin %s: %w", pluginID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, responseError(resp)
	}

	f, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", dest, err)
	}

	n, err := copyChunks(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return n, fmt.Errorf("writing %s: %w", dest, err)
	}
	if n == 0 {
		os.Remove(dest)
		return 0, ErrEmptyDownload
	}

	c.log.Info().Str("pluginId", pluginID).Int64("bytes", n).Msg("plugin downloaded")
	return n, nil
}

// CheckPermission asks whether the token may install this plugin version.
func (c *Client) CheckPermission(ctx context.Context, pluginID, version string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	u := fmt.Sprintf("%s/plugins/%s/verify/%s", c.base, url.PathEscape(pluginID), url.PathEscape(version))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("checking permission: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return false, err
	}
	return gjson.GetBytes(body, "success").Bool(), nil
}

func copyChunks(w io.Writer, r io.Reader) (int64, error) {
	buf := make([]byte, ChunkSize)
	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			written, werr := w.Write(buf[:n])
			total += int64(written)
			if werr != nil {
				return total, werr
			}
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// responseError prefers the API's own message over the bare status.
func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if msg := gjson.GetBytes(body, "message").String(); msg != "" {
		return fmt.Errorf("marketplace: %s", msg)
	}
	return fmt.Errorf("marketplace: unexpected status %d", resp.StatusCode)
}

// leveledLogger routes retryablehttp logging into zerolog.
type leveledLogger struct{ log *logging.Logger }

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.log.Error().Fields(kv).Msg(msg) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.log.Debug().Fields(kv).Msg(msg) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.log.Debug().Fields(kv).Msg(msg) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.log.Warn().Fields(kv).Msg(msg) }
