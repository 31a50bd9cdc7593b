package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DocuSignConfig holds e-signature API credentials.
type DocuSignConfig struct {
	BaseURL   string
	APIKey    string
	AccountID string
}

// DocuSignClient requests signatures through the DocuSign REST API.
type DocuSignClient struct {
	config DocuSignConfig
	client *http.Client
	logger *zap.Logger
}

// Envelope is a signature request for one document.
type Envelope struct {
	ID     string `json:"envelopeId"`
	Status string `json:"status"`
}

// Signer identifies who must sign an envelope.
type Signer struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NewDocuSignClient creates an e-signature client.
func NewDocuSignClient(cfg DocuSignConfig, logger *zap.Logger) *DocuSignClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://demo.docusign.net/restapi/v2.1"
	}
	return &DocuSignClient{
		config: cfg,
		client: &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}
}

// CreateEnvelope sends a document out for signature and returns the
// envelope reference.
func (d *DocuSignClient) CreateEnvelope(ctx context.Context, title string, content []byte, signers []Signer) (*Envelope, error) {
	type reqDocument struct {
		DocumentBase64 string `json:"documentBase64"`
		Name           string `json:"name"`
		FileExtension  string `json:"fileExtension"`
		DocumentID     string `json:"documentId"`
	}
	type reqSigner struct {
		Email       string `json:"email"`
		Name        string `json:"name"`
		RecipientID string `json:"recipientId"`
	}

	recipients := make([]reqSigner, len(signers))
	for i, s := range signers {
		recipients[i] = reqSigner{Email: s.Email, Name: s.Name, RecipientID: fmt.Sprintf("%d", i+1)}
	}
	payload := map[string]any{
		"emailSubject": "Please sign: " + title,
		"status":       "sent",
		"documents": []reqDocument{{
			DocumentBase64: base64.StdEncoding.EncodeToString(content),
			Name:           title,
			FileExtension:  "txt",
			DocumentID:     "1",
		}},
		"recipients": map[string]any{"signers": recipients},
	}

	env := &Envelope{}
	if err := d.do(ctx, http.MethodPost, fmt.Sprintf("/accounts/%s/envelopes", d.config.AccountID), payload, env); err != nil {
		return nil, err
	}
	d.logger.Info("envelope created", zap.String("id", env.ID), zap.String("title", title))
	return env, nil
}

// EnvelopeStatus fetches the current signature status of an envelope.
func (d *DocuSignClient) EnvelopeStatus(ctx context.Context, envelopeID string) (*Envelope, error) {
	env := &Envelope{}
	path := fmt.Sprintf("/accounts/%s/envelopes/%s", d.config.AccountID, envelopeID)
	if err := d.do(ctx, http.MethodGet, path, nil, env); err != nil {
		return nil, err
	}
	return env, nil
}

func (d *DocuSignClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.config.APIKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("docusign request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("docusign error %d: %s", resp.StatusCode, string(respBody))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
