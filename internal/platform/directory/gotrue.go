package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/yungbote/pinegate-backend/internal/observability"
	"github.com/yungbote/pinegate-backend/internal/pkg/httpx"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

// maxPages stops a runaway paging loop against a misbehaving server.
const maxPages = 10000

// GoTrueCounter pages the auth server's admin user listing.
type GoTrueCounter struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

func NewGoTrueCounter(log *logger.Logger, cfg Config) *GoTrueCounter {
	if cfg.PerPage <= 0 {
		cfg.PerPage = 1000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &GoTrueCounter{
		log:        log.With("client", "GoTrueCounter"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type adminUsersPage struct {
	Users []json.RawMessage `json:"users"`
}

type adminHTTPError struct {
	StatusCode int
	Body       string
}

func (e *adminHTTPError) Error() string {
	return fmt.Sprintf("auth admin http %d: %s", e.StatusCode, e.Body)
}

func (e *adminHTTPError) HTTPStatusCode() int { return e.StatusCode }

func (c *GoTrueCounter) CountUsers(ctx context.Context) (int, error) {
	ctx, span := observability.StartSpan(ctx, "directory.count_users")
	total := 0
	for page := 1; page <= maxPages; page++ {
		n, err := c.fetchPage(ctx, page)
		if err != nil {
			observability.EndSpan(span, err)
			return 0, err
		}
		total += n
		if n < c.cfg.PerPage {
			observability.EndSpan(span, nil)
			return total, nil
		}
	}
	err := fmt.Errorf("auth admin: gave up after %d pages", maxPages)
	observability.EndSpan(span, err)
	return 0, err
}

func (c *GoTrueCounter) fetchPage(ctx context.Context, page int) (int, error) {
	for attempt := 0; ; attempt++ {
		resp, n, err := c.fetchPageOnce(ctx, page)
		if err == nil {
			return n, nil
		}
		if !httpx.IsRetryableError(err) || attempt >= c.cfg.MaxRetries {
			return 0, err
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, httpx.Backoff(500*time.Millisecond, 5*time.Second, attempt+1), 5*time.Second))
		c.log.Warn("Auth admin request retrying", "page", page, "attempt", attempt+1, "sleep", sleepFor.String(), "error", err.Error())
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return 0, err
		}
	}
}

func (c *GoTrueCounter) fetchPageOnce(ctx context.Context, page int) (*http.Response, int, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(c.cfg.PerPage))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.AdminURL+"/admin/users?"+q.Encode(), nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.ServiceKey)
	req.Header.Set("apikey", c.cfg.ServiceKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, 0, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, 0, &adminHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	var body adminUsersPage
	if err := json.Unmarshal(raw, &body); err != nil {
		return resp, 0, fmt.Errorf("auth admin decode: %w", err)
	}
	return resp, len(body.Users), nil
}
