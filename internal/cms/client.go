package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/dgallion1/cmsprep/internal/logging"
)

const (
	// DefaultBaseURL is the ButterCMS v2 API root.
	DefaultBaseURL = "https://api.buttercms.com/v2"
	// PageSize is the fixed page size used when listing pages.
	PageSize = 100
)

// Client talks to the CMS pages API. The auth token travels as the
// auth_token query parameter on every request.
type Client struct {
	http      *resty.Client
	authToken string
	log       *slog.Logger
}

func NewClient(baseURL, authToken string, log *slog.Logger) *Client {
	if log == nil {
		log = logging.Discard()
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{log: log})
	return &Client{http: rc, authToken: authToken, log: log}
}

// Fields holds the page content fields the toolkit reads.
type Fields struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Page is a single item of a pages listing.
type Page struct {
	Slug     string `json:"slug"`
	PageType string `json:"page_type,omitempty"`
	Fields   Fields `json:"fields"`
}

// Meta carries pagination state.
type Meta struct {
	NextPage NextPage `json:"next_page"`
}

// PagesResponse is the body of a pages listing.
type PagesResponse struct {
	Data []Page `json:"data"`
	Meta Meta   `json:"meta"`
}

// NextPage decodes the next_page marker. null, false, 0 and "" mean the
// listing is exhausted; any other value means another page exists.
type NextPage bool

func (n *NextPage) UnmarshalJSON(b []byte) error {
	switch strings.TrimSpace(string(b)) {
	case "null", "false", "0", `""`:
		*n = false
	default:
		*n = true
	}
	return nil
}

func (n NextPage) MarshalJSON() ([]byte, error) {
	if n {
		return []byte("true"), nil
	}
	return []byte("null"), nil
}

// StatusError is returned when the API answers with a non-200 status.
type StatusError struct {
	PageType   string
	Page       int
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s pages (page %d): status %d: %s", e.PageType, e.Page, e.StatusCode, truncate(e.Body, 200))
}

// FetchPages retrieves every page of a page type, following next_page until
// the listing is exhausted. On failure it returns the pages gathered so far
// together with the error.
func (c *Client) FetchPages(ctx context.Context, pageType string) ([]Page, error) {
	var all []Page
	for page := 1; ; page++ {
		resp, err := c.listPage(ctx, pageType, page)
		if err != nil {
			return all, err
		}
		all = append(all, resp.Data...)
		c.log.Debug("fetched page batch", "type", pageType, "page", page, "items", len(resp.Data))
		if !resp.Meta.NextPage {
			return all, nil
		}
	}
}

func (c *Client) listPage(ctx context.Context, pageType string, page int) (*PagesResponse, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("type", pageType).
		SetQueryParams(map[string]string{
			"auth_token": c.authToken,
			"page":       strconv.Itoa(page),
			"page_size":  strconv.Itoa(PageSize),
		}).
		Get("/pages/{type}/")
	if err != nil {
		return nil, fmt.Errorf("fetch %s pages (page %d): %w", pageType, page, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{
			PageType:   pageType,
			Page:       page,
			StatusCode: resp.StatusCode(),
			Body:       truncate(resp.String(), 1024),
		}
	}

	var out PagesResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode %s pages (page %d): %w", pageType, page, err)
	}
	return &out, nil
}

// FetchPage retrieves a single page by slug and returns its raw data object.
// pageType "*" searches every page type.
func (c *Client) FetchPage(ctx context.Context, pageType, slug string) (json.RawMessage, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"type": pageType, "slug": slug}).
		SetQueryParam("auth_token", c.authToken).
		Get("/pages/{type}/{slug}/")
	if err != nil {
		return nil, fmt.Errorf("fetch page %s: %w", slug, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{
			PageType:   pageType,
			StatusCode: resp.StatusCode(),
			Body:       truncate(resp.String(), 1024),
		}
	}

	var out struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode page %s: %w", slug, err)
	}
	return out.Data, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.GetClient().CloseIdleConnections()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// restyLogger routes resty's internal warnings into slog.
type restyLogger struct {
	log *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) { l.log.Error(fmt.Sprintf(format, v...)) }
func (l restyLogger) Warnf(format string, v ...any)  { l.log.Warn(fmt.Sprintf(format, v...)) }
func (l restyLogger) Debugf(format string, v ...any) { l.log.Debug(fmt.Sprintf(format, v...)) }
