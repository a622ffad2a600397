package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Sender delivers one SMS. Implementations must treat each call as an
// independent attempt; the dispatcher isolates failures per recipient.
type Sender interface {
	Send(ctx context.Context, mobileNo, message string) error
}

// HTTPGateway posts messages to a configurable SMS gateway endpoint.
type HTTPGateway struct {
	URL      string
	APIKey   string
	SenderID string
	Client   *http.Client
}

func NewHTTPGateway(url, apiKey, senderID string) *HTTPGateway {
	return &HTTPGateway{
		URL:      url,
		APIKey:   apiKey,
		SenderID: senderID,
		Client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type gatewayRequest struct {
	To       string `json:"to"`
	Message  string `json:"message"`
	SenderID string `json:"sender_id,omitempty"`
}

func (g *HTTPGateway) Send(ctx context.Context, mobileNo, message string) error {
	mobileNo = strings.TrimSpace(mobileNo)
	if mobileNo == "" {
		return fmt.Errorf("invalid mobile number")
	}

	payload, err := json.Marshal(gatewayRequest{To: mobileNo, Message: message, SenderID: g.SenderID})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.APIKey)
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// LogSender logs instead of sending. Used when no gateway URL is
// configured, so the rest of the pipeline stays exercisable locally.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, mobileNo, message string) error {
	log.WithFields(log.Fields{"mobile_no": mobileNo, "message": message}).Info("sms gateway not configured, logging message")
	return nil
}

var (
	_ Sender = (*HTTPGateway)(nil)
	_ Sender = LogSender{}
)
