// Package roster loads the ARTCC controller roster used to resolve CIDs to
// display names in notifications. Roster loading is best-effort: callers
// degrade to callsign-only display when it is unavailable.
package roster

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/codeGROOVE-dev/retry"
)

// DefaultURL is the Oakland ARTCC public roster page.
const DefaultURL = "https://oakartcc.org/about/roster"

// cidRegex matches a VATSIM CID: numeric, six or more digits.
var cidRegex = regexp.MustCompile(`^\d{6,}$`)

// nameRegex reverses "Lastname, Firstname(XX)" roster formatting.
var nameRegex = regexp.MustCompile(`^([^,]+),\s*([^(]+)(?:\(([^)]*)\))?`)

// Load fetches the roster page and returns a CID-to-name map. The fetch is
// retried because it happens once at startup, not inside the poll cycle.
func Load(ctx context.Context, url string, logger *slog.Logger) (map[string]string, error) {
	if url == "" {
		url = DefaultURL
	}

	client := &http.Client{Timeout: 10 * time.Second}
	var doc *goquery.Document

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
			if err != nil {
				return fmt.Errorf("create request: %w", err)
			}

			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("fetch roster: %w", err)
			}
			defer func() {
				if closeErr := resp.Body.Close(); closeErr != nil {
					logger.Warn("Failed to close roster response body", "error", closeErr)
				}
			}()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("HTTP %d", resp.StatusCode)
			}

			doc, err = goquery.NewDocumentFromReader(resp.Body)
			if err != nil {
				return fmt.Errorf("parse roster page: %w", err)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.Info("Retrying roster fetch after error", "attempt", n, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("after retries: %w", err)
	}

	names := Parse(doc)
	logger.Info("Roster loaded", "url", url, "controllers", len(names))
	return names, nil
}

// Parse extracts CID-to-name pairs from a roster document. Roster tables
// put the CID and the name in adjacent cells of the same row.
func Parse(doc *goquery.Document) map[string]string {
	names := make(map[string]string)

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		var cid string
		var name string

		cells.Each(func(_ int, cell *goquery.Selection) {
			text := strings.TrimSpace(cell.Text())
			switch {
			case cid == "" && cidRegex.MatchString(text):
				cid = text
			case name == "" && text != "" && !cidRegex.MatchString(text) && len(text) > 2:
				name = text
			}
		})

		if cid != "" && name != "" {
			names[cid] = FormatName(name)
		}
	})

	return names
}

// FormatName converts "Lastname, Firstname(XX)" roster entries to
// "Firstname Lastname". Anything else passes through cleaned of repeated
// whitespace.
func FormatName(raw string) string {
	raw = strings.Join(strings.Fields(raw), " ")
	m := nameRegex.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	return strings.TrimSpace(m[2]) + " " + strings.TrimSpace(m[1])
}
