package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TwilioConfig holds Twilio account credentials.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	Endpoint   string
}

// TwilioClient sends SMS through the Twilio REST API.
type TwilioClient struct {
	config TwilioConfig
	client *http.Client
	logger *zap.Logger
}

// SMSResult is Twilio's view of a sent message.
type SMSResult struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
	To     string `json:"to"`
	From   string `json:"from"`
	Body   string `json:"body"`
}

// NewTwilioClient creates a Twilio SMS client.
func NewTwilioClient(cfg TwilioConfig, logger *zap.Logger) *TwilioClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.twilio.com/2010-04-01"
	}
	return &TwilioClient{
		config: cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// SendSMS sends a text message from the configured number.
func (t *TwilioClient) SendSMS(ctx context.Context, toNumber, message string) (*SMSResult, error) {
	form := url.Values{}
	form.Set("To", toNumber)
	form.Set("From", t.config.FromNumber)
	form.Set("Body", message)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", t.config.Endpoint, t.config.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.config.AccountSID, t.config.AuthToken)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("twilio error %d: %s", resp.StatusCode, string(body))
	}

	var result SMSResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	t.logger.Info("sms sent", zap.String("sid", result.SID), zap.String("to", result.To))
	return &result, nil
}
