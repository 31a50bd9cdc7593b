package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// VapiConfig holds Vapi.ai credentials.
type VapiConfig struct {
	APIKey      string
	AssistantID string
	Endpoint    string
}

// VapiClient places AI voice calls through the Vapi.ai API.
type VapiClient struct {
	config VapiConfig
	client *http.Client
	logger *zap.Logger
}

// CallResult is Vapi's view of a call.
type CallResult struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Phone  string         `json:"phone_number"`
	Detail map[string]any `json:"detail,omitempty"`
}

// NewVapiClient creates a Vapi voice client.
func NewVapiClient(cfg VapiConfig, logger *zap.Logger) *VapiClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.vapi.ai/v1"
	}
	return &VapiClient{
		config: cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// CreateCall starts an outbound call with the configured assistant.
func (v *VapiClient) CreateCall(ctx context.Context, phoneNumber, initialMessage string, metadata map[string]string) (*CallResult, error) {
	payload := map[string]any{
		"phone_number":    phoneNumber,
		"assistant_id":    v.config.AssistantID,
		"initial_message": initialMessage,
		"metadata":        metadata,
	}
	result, err := v.do(ctx, http.MethodPost, "/call", payload)
	if err != nil {
		return nil, err
	}
	v.logger.Info("voice call created", zap.String("id", result.ID), zap.String("to", phoneNumber))
	return result, nil
}

// GetCall fetches call details by id.
func (v *VapiClient) GetCall(ctx context.Context, callID string) (*CallResult, error) {
	return v.do(ctx, http.MethodGet, "/call/"+callID, nil)
}

// EndCall hangs up an ongoing call.
func (v *VapiClient) EndCall(ctx context.Context, callID string) (*CallResult, error) {
	return v.do(ctx, http.MethodPost, "/call/"+callID+"/end", nil)
}

func (v *VapiClient) do(ctx context.Context, method, path string, payload any) (*CallResult, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, v.config.Endpoint+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+v.config.APIKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vapi request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("vapi error %d: %s", resp.StatusCode, string(respBody))
	}

	var result CallResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}
