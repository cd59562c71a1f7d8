package claude

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const (
	DefaultBaseURL = "https://claude.ai"

	// The usage API rejects requests without a browser-like User-Agent.
	// Compatibility requirement of the remote service, nothing more.
	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	// SessionCookieName is the cookie carrying the session token on claude.ai.
	SessionCookieName = "sessionKey"
)

var (
	// ErrUnauthorized marks a 401/403 from the usage endpoint: the session
	// is invalid and the caller should run the recovery chain.
	ErrUnauthorized = errors.New("claude: session unauthorized")

	// ErrNotFound is returned by ResolveOrganizationID when no organization
	// can be determined yet. Callers poll through it; it is never fatal.
	ErrNotFound = errors.New("claude: organization not found")
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) get(ctx context.Context, url, sessionKey string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Cookie", fmt.Sprintf("%s=%s", SessionCookieName, sessionKey))
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}

type organization struct {
	UUID string `json:"uuid"`
	ID   string `json:"id"`
}

// ResolveOrganizationID exchanges a raw session token for the account it
// belongs to: the first-listed organization's identifier. Every failure maps
// to ErrNotFound because during login the API is often simply not ready yet.
func (c *Client) ResolveOrganizationID(ctx context.Context, sessionKey string) (string, error) {
	resp, err := c.get(ctx, c.baseURL+"/api/organizations", sessionKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: organizations returned %d", ErrNotFound, resp.StatusCode)
	}

	var orgs []organization
	if err := json.NewDecoder(resp.Body).Decode(&orgs); err != nil {
		return "", fmt.Errorf("%w: parsing organizations: %v", ErrNotFound, err)
	}
	if len(orgs) == 0 {
		return "", fmt.Errorf("%w: empty organization list", ErrNotFound)
	}

	id := orgs[0].UUID
	if id == "" {
		id = orgs[0].ID
	}
	if id == "" {
		return "", fmt.Errorf("%w: organization has no identifier", ErrNotFound)
	}
	return id, nil
}

type usageBucket struct {
	Utilization float64 `json:"utilization"`
	ResetsAt    string  `json:"resets_at"`
}

type usageResponse struct {
	FiveHour *usageBucket `json:"five_hour"`
	SevenDay *usageBucket `json:"seven_day"`
}

// FetchUsage retrieves both usage windows for the organization. 401 and 403
// classify as ErrUnauthorized; anything else is a transient failure that
// keeps the current credential untouched.
func (c *Client) FetchUsage(ctx context.Context, sessionKey, orgID string) (*Usage, error) {
	url := fmt.Sprintf("%s/api/organizations/%s/usage", c.baseURL, orgID)

	resp, err := c.get(ctx, url, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("usage request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("usage returned %d: %w", resp.StatusCode, ErrUnauthorized)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("usage returned %d: %s", resp.StatusCode, string(body))
	}

	var raw usageResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing usage response: %w", err)
	}

	usage := &Usage{
		FiveHour: bucketToWindow(raw.FiveHour),
		SevenDay: bucketToWindow(raw.SevenDay),
	}
	log.Printf("[claude] usage fetched: session=%.1f%% weekly=%.1f%%",
		usage.FiveHour.Utilization, usage.SevenDay.Utilization)
	return usage, nil
}

func bucketToWindow(b *usageBucket) Window {
	if b == nil {
		return Window{}
	}
	w := Window{Utilization: b.Utilization}
	if b.ResetsAt != "" && b.ResetsAt != "null" {
		if t, err := time.Parse(time.RFC3339, b.ResetsAt); err == nil {
			w.ResetsAt = &t
		} else {
			log.Printf("[claude] unparseable resets_at %q: %v", b.ResetsAt, err)
		}
	}
	return w
}
