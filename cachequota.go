package cachequota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/lucasew/cachequota/internal/errutil"
	"github.com/shogo82148/go-sfv"
)

// ServerEnv names the environment variable holding the server list, encoded
// as a Structured Field Values list of strings.
const ServerEnv = "CACHEQUOTA_SERVER"

var (
	// ErrNoServers is returned when the client has no server to talk to.
	ErrNoServers = errors.New("no servers configured")

	// ErrAllServersFailed is returned when no server could be reached.
	ErrAllServersFailed = errors.New("all servers failed")
)

// HTTPStatusError is returned when a server responds with an unexpected status code.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// RemoteError is a maintenance failure reported by the server. Deletions
// performed before the failure are not rolled back.
type RemoteError struct {
	Kind    string `json:"kind"`
	Op      string `json:"op,omitempty"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s %s: %s", e.Kind, e.Op, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

type Client struct {
	HTTP    *http.Client
	Servers []string
}

// PruneOptions selects the tenant and quota of a maintenance request.
type PruneOptions struct {
	TeamID string
	Slug   string
	// MB is the quota in mebibytes. Nil lets the server apply its default.
	MB *float64
	// ID is sent as the artifact path segment. Servers accept it but do
	// not use it to choose what to delete.
	ID string
}

// NewClient returns a Client using the servers listed in CACHEQUOTA_SERVER.
func NewClient(client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	servers, err := ParseServers(os.Getenv(ServerEnv))
	errutil.LogMsg(err, "Failed to parse "+ServerEnv)
	return &Client{
		HTTP:    client,
		Servers: servers,
	}
}

// ParseServers decodes an SFV list of server URLs. Non-string items are skipped.
func ParseServers(value string) ([]string, error) {
	if value == "" {
		return nil, nil
	}
	list, err := sfv.DecodeList([]string{value})
	if err != nil {
		return nil, err
	}
	var servers []string
	for _, item := range list {
		if s, ok := item.Value.(string); ok {
			servers = append(servers, s)
		}
	}
	return servers, nil
}

// EncodeServers is the inverse of ParseServers.
func EncodeServers(servers []string) (string, error) {
	list := make(sfv.List, len(servers))
	for i, s := range servers {
		list[i] = sfv.Item{Value: s}
	}
	return sfv.EncodeList(list)
}

// Prune asks a server to enforce the tenant quota and returns the paths left
// in the tenant directory.
//
// Servers are tried in order. Only transport failures and unexpected
// statuses move on to the next server; a RemoteError is returned as is, since
// the request reached a server and may already have deleted files.
func (c *Client) Prune(ctx context.Context, opts PruneOptions) ([]string, error) {
	if len(c.Servers) == 0 {
		return nil, ErrNoServers
	}

	var lastErr error
	for _, server := range c.Servers {
		paths, err := c.prune(ctx, server, opts)
		if err == nil {
			return paths, nil
		}
		var remote *RemoteError
		if errors.As(err, &remote) {
			return nil, err
		}
		errutil.LogMsg(err, "Failed to prune on server", "server", server)
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %w", ErrAllServersFailed, lastErr)
}

func (c *Client) prune(ctx context.Context, server string, opts PruneOptions) ([]string, error) {
	u := strings.TrimRight(server, "/") + "/artifacts"
	if opts.ID != "" {
		u += "/" + url.PathEscape(opts.ID)
	}

	q := url.Values{}
	if opts.TeamID != "" {
		q.Set("teamId", opts.TeamID)
	}
	if opts.Slug != "" {
		q.Set("slug", opts.Slug)
	}
	if opts.MB != nil {
		q.Set("mb", strconv.FormatFloat(*opts.MB, 'f', -1, 64))
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer errutil.Close(resp.Body, "Failed to close response body")

	switch resp.StatusCode {
	case http.StatusOK:
		var paths []string
		if err := json.NewDecoder(resp.Body).Decode(&paths); err != nil {
			return nil, fmt.Errorf("failed to decode listing: %w", err)
		}
		return paths, nil
	case http.StatusBadRequest:
		var body struct {
			Err RemoteError `json:"err"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, &HTTPStatusError{StatusCode: resp.StatusCode}
		}
		return nil, &body.Err
	default:
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode}
	}
}
