// Package vatsim fetches and parses the VATSIM data feed.
package vatsim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/leftos/oak-tower-watcher-sub000/pkg/watcher"
)

// DefaultFeedURL is the public VATSIM v3 data feed.
const DefaultFeedURL = "https://data.vatsim.net/v3/vatsim-data.json"

const fetchTimeout = 10 * time.Second

// UnavailableError indicates the feed could not be reached or returned a
// non-2xx status. The next scheduled poll is the retry mechanism; callers
// must not retry within the cycle.
type UnavailableError struct {
	URL string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("vatsim feed unavailable: %s: %v", e.URL, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// MalformedError indicates the feed body could not be decoded.
type MalformedError struct {
	Err error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("vatsim feed malformed: %v", e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err is a feed availability failure.
func IsUnavailable(err error) bool {
	var unavailable *UnavailableError
	return errors.As(err, &unavailable)
}

// IsMalformed reports whether err is a feed parse failure.
func IsMalformed(err error) bool {
	var malformed *MalformedError
	return errors.As(err, &malformed)
}

// Client fetches controller data from the VATSIM feed.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a feed client. An empty url selects DefaultFeedURL.
func New(url string, logger *slog.Logger) *Client {
	if url == "" {
		url = DefaultFeedURL
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: fetchTimeout},
		logger:     logger,
	}
}

// Fetch retrieves the current controller list. All controllers in the feed
// are returned, including inactive-frequency ones; classification decides
// what to do with them.
func (c *Client) Fetch(ctx context.Context) ([]watcher.Controller, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return nil, &UnavailableError{URL: c.url, Err: err}
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Warn("Feed request failed",
			"url", c.url,
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return nil, &UnavailableError{URL: c.url, Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Failed to close feed response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("Feed returned non-2xx status",
			"url", c.url,
			"status_code", resp.StatusCode,
			"duration_ms", duration.Milliseconds())
		return nil, &UnavailableError{URL: c.url, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	var doc feedDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, &MalformedError{Err: err}
	}

	controllers := make([]watcher.Controller, 0, len(doc.Controllers))
	for _, fc := range doc.Controllers {
		controllers = append(controllers, fc.toController())
	}

	c.logger.Debug("Feed fetched",
		"url", c.url,
		"controllers", len(controllers),
		"duration_ms", duration.Milliseconds())

	return controllers, nil
}

type feedDocument struct {
	Controllers []feedController `json:"controllers"`
}

type feedController struct {
	Callsign  string        `json:"callsign"`
	CID       flexibleValue `json:"cid"`
	Name      string        `json:"name"`
	Frequency flexibleValue `json:"frequency"`
	Rating    int           `json:"rating"`
	LogonTime string        `json:"logon_time"`
	Server    string        `json:"server"`
}

func (fc feedController) toController() watcher.Controller {
	ctrl := watcher.Controller{
		Callsign:  fc.Callsign,
		CID:       string(fc.CID),
		Name:      fc.Name,
		Frequency: string(fc.Frequency),
		Rating:    fc.Rating,
		Server:    fc.Server,
	}
	if fc.LogonTime != "" {
		// The feed uses RFC 3339 with nanosecond precision; tolerate
		// anything parseable and leave the zero value otherwise.
		if t, err := time.Parse(time.RFC3339, fc.LogonTime); err == nil {
			ctrl.LogonTime = t.UTC()
		}
	}
	return ctrl
}

// flexibleValue decodes a JSON string or number into its string form. The
// feed is inconsistent about whether cid and frequency are quoted, and the
// inactive-frequency sentinel comparison is defined on strings.
type flexibleValue string

func (f *flexibleValue) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleValue(n.String())
	return nil
}
