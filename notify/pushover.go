package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	pushoverMessagesURL = "https://api.pushover.net/1/messages.json"
	pushoverValidateURL = "https://api.pushover.net/1/users/validate.json"
)

// Pushover sends notifications via the Pushover API.
type Pushover struct {
	endpoint    string
	validateURL string
	client      *http.Client
	logger      *slog.Logger
}

// NewPushover creates a Pushover provider. An empty endpoint selects the
// public API; tests point it at a local server.
func NewPushover(endpoint string, logger *slog.Logger) *Pushover {
	validateURL := pushoverValidateURL
	if endpoint == "" {
		endpoint = pushoverMessagesURL
	} else {
		validateURL = endpoint
	}
	return &Pushover{
		endpoint:    endpoint,
		validateURL: validateURL,
		client:      &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
	}
}

// pushoverResponse is the API result envelope. status is 1 on success.
type pushoverResponse struct {
	Status int      `json:"status"`
	Errors []string `json:"errors"`
}

// Send delivers a single message. Per-recipient credentials travel in the
// message, so one provider instance serves every subscriber.
func (p *Pushover) Send(ctx context.Context, msg Message) error {
	if msg.Token == "" || msg.UserKey == "" {
		return &DeliveryError{Provider: "pushover", Reason: "token and user key are required"}
	}
	if msg.Body == "" {
		return &DeliveryError{Provider: "pushover", Reason: "message body is required"}
	}

	data := url.Values{}
	data.Set("token", msg.Token)
	data.Set("user", msg.UserKey)
	data.Set("message", msg.Body)
	data.Set("priority", strconv.Itoa(msg.Priority))
	if msg.Title != "" {
		data.Set("title", msg.Title)
	}
	if msg.Sound != "" {
		data.Set("sound", msg.Sound)
	}
	if msg.URL != "" {
		data.Set("url", msg.URL)
	}
	if msg.URLTitle != "" {
		data.Set("url_title", msg.URLTitle)
	}
	if msg.Device != "" {
		data.Set("device", msg.Device)
	}

	if err := p.post(ctx, p.endpoint, data); err != nil {
		return err
	}

	p.logger.Info("Pushover notification sent", "title", msg.Title, "priority", msg.Priority, "sound", msg.Sound)
	return nil
}

// ValidateUser checks a user key against the Pushover validation endpoint.
func (p *Pushover) ValidateUser(ctx context.Context, token, userKey string) error {
	if userKey == "" {
		return &DeliveryError{Provider: "pushover", Reason: "no user key provided"}
	}
	data := url.Values{}
	data.Set("token", token)
	data.Set("user", userKey)
	return p.post(ctx, p.validateURL, data)
}

func (p *Pushover) post(ctx context.Context, endpoint string, data url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return &DeliveryError{Provider: "pushover", Reason: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	startTime := time.Now()
	resp, err := p.client.Do(req)
	duration := time.Since(startTime)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &DeliveryError{Provider: "pushover", Reason: "request timeout", Err: err}
		}
		return &DeliveryError{Provider: "pushover", Reason: "request failed", Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			p.logger.Warn("Failed to close pushover response body", "error", closeErr)
		}
	}()

	var result pushoverResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return &DeliveryError{Provider: "pushover", Reason: "invalid JSON response", Err: err}
	}

	if resp.StatusCode != http.StatusOK || result.Status != 1 {
		reason := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if len(result.Errors) > 0 {
			reason = result.Errors[0]
		}
		p.logger.Warn("Pushover API rejected request",
			"status_code", resp.StatusCode,
			"reason", reason,
			"duration_ms", duration.Milliseconds())
		return &DeliveryError{Provider: "pushover", Reason: reason}
	}

	return nil
}
