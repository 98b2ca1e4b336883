package syncthing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// requestTimeout bounds every API call. It is sized for the events
// long-poll, which the daemon holds open for up to 60 seconds before
// returning an empty batch.
const requestTimeout = 70 * time.Second

// maxErrorBodyBytes caps how much of an error response body is read
// into an APIError message.
const maxErrorBodyBytes = 4096

// Client is the version-independent view of the syncthing REST API.
// Obtain one through SelectClient; all implementations normalise their
// generation's wire shapes into the types in this package.
//
// Every method returns ErrUnavailable when the daemon cannot be
// reached, *APIError when it answered with a non-2xx status, and
// ErrProtocolMismatch when the response body does not decode.
type Client interface {
	// Version reports the daemon version.
	Version(ctx context.Context) (Version, error)

	// SystemInfo reports runtime information about the daemon.
	SystemInfo(ctx context.Context) (SystemInfo, error)

	// Config fetches the subset of the daemon configuration the
	// bridge needs (folders and devices).
	Config(ctx context.Context) (Config, error)

	// Connections reports the aggregate and per-device connection
	// statistics.
	Connections(ctx context.Context) (Connections, error)

	// Ignores fetches the ignore patterns for a folder.
	Ignores(ctx context.Context, folder string) (Ignores, error)

	// Scan requests a rescan of a folder, optionally limited to a
	// subpath. An empty subpath scans the whole folder.
	Scan(ctx context.Context, folder, subpath string) error

	// Restart asks the daemon to restart itself.
	Restart(ctx context.Context) error

	// Shutdown asks the daemon to exit.
	Shutdown(ctx context.Context) error

	// Events long-polls the event feed for records with ID greater
	// than since. The daemon returns after limit events are
	// available or its internal timeout elapses, whichever comes
	// first. A limit of 0 leaves the batch size to the daemon.
	Events(ctx context.Context, since int64, limit int) ([]Event, error)
}

// rest is the transport shared by all version bindings: base URL,
// API key header, and uniform error mapping.
type rest struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func newRest(baseURL, apiKey string) *rest {
	return &rest{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: requestTimeout},
	}
}

// get performs a GET request and decodes the JSON response into out.
func (r *rest) get(ctx context.Context, path string, query url.Values, out any) error {
	return r.do(ctx, http.MethodGet, path, query, out)
}

// post performs a POST request, discarding any response body.
func (r *rest) post(ctx context.Context, path string, query url.Values) error {
	return r.do(ctx, http.MethodPost, path, query, nil)
}

func (r *rest) do(ctx context.Context, method, path string, query url.Values, out any) error {
	u := r.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("syncthing: building request for %s: %w", path, err)
	}
	req.Header.Set("X-API-Key", r.apiKey)

	resp, err := r.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Read-side close

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &APIError{
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(string(body)),
		}
	}

	if out == nil {
		// Drain so the connection can be reused.
		//nolint:errcheck
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrUnavailable, path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrProtocolMismatch, path, err)
	}
	return nil
}

// restClient implements the endpoints whose wire shapes are identical
// across the supported daemon generations. Version bindings embed it
// and add their generation's Config and Connections decoding.
type restClient struct {
	*rest
}

func (c *restClient) Version(ctx context.Context) (Version, error) {
	var v Version
	err := c.get(ctx, "/rest/system/version", nil, &v)
	return v, err
}

func (c *restClient) SystemInfo(ctx context.Context) (SystemInfo, error) {
	var info SystemInfo
	err := c.get(ctx, "/rest/system/status", nil, &info)
	return info, err
}

func (c *restClient) Ignores(ctx context.Context, folder string) (Ignores, error) {
	q := url.Values{}
	q.Set("folder", folder)

	var ig Ignores
	err := c.get(ctx, "/rest/db/ignores", q, &ig)
	return ig, err
}

func (c *restClient) Scan(ctx context.Context, folder, subpath string) error {
	return c.post(ctx, "/rest/db/scan", scanQuery(folder, subpath))
}

func (c *restClient) Restart(ctx context.Context) error {
	return c.post(ctx, "/rest/system/restart", nil)
}

func (c *restClient) Shutdown(ctx context.Context) error {
	return c.post(ctx, "/rest/system/shutdown", nil)
}

func (c *restClient) Events(ctx context.Context, since int64, limit int) ([]Event, error) {
	var events []Event
	if err := c.get(ctx, "/rest/events", eventQuery(since, limit), &events); err != nil {
		return nil, err
	}
	return events, nil
}

// eventQuery builds the query values for the events long-poll.
func eventQuery(since int64, limit int) url.Values {
	q := url.Values{}
	q.Set("since", strconv.FormatInt(since, 10))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

// scanQuery builds the query values for a folder scan request.
func scanQuery(folder, subpath string) url.Values {
	q := url.Values{}
	q.Set("folder", folder)
	if subpath != "" {
		q.Set("sub", subpath)
	}
	return q
}
