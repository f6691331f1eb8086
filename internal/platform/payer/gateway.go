package payer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// GatewayAdapter submits prior authorization requests to an electronic
// payer gateway over JSON/HTTP. One instance serves one payer; the gateway
// endpoint and credentials come from configuration.
type GatewayAdapter struct {
	payerName string
	baseURL   string
	apiKey    string
	client    *http.Client
	logger    zerolog.Logger
}

// GatewayConfig configures a GatewayAdapter.
type GatewayConfig struct {
	PayerName string
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
}

// NewGatewayAdapter creates an adapter that talks to an electronic payer
// gateway. Timeout defaults to 30 seconds when unset.
func NewGatewayAdapter(cfg GatewayConfig, logger zerolog.Logger) *GatewayAdapter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GatewayAdapter{
		payerName: cfg.PayerName,
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

func (a *GatewayAdapter) Name() string { return a.payerName }

// gatewaySubmitResponse is the gateway's acknowledgement body.
type gatewaySubmitResponse struct {
	ExternalRef           string          `json:"external_ref"`
	Status                string          `json:"status"`
	Note                  string          `json:"note"`
	Payload               json.RawMessage `json:"payload,omitempty"`
	EstimatedDecisionTime *time.Time      `json:"estimated_decision_time,omitempty"`
}

// gatewayStatusResponse is the gateway's status poll body.
type gatewayStatusResponse struct {
	Status      string          `json:"status"`
	Note        string          `json:"note"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	LastUpdated *time.Time      `json:"last_updated,omitempty"`
}

func (a *GatewayAdapter) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &Error{Payer: a.payerName, Op: "submit", Err: fmt.Errorf("encoding request: %w", err)}
	}

	endpoint := a.baseURL + "/prior-auth/submissions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Payer: a.payerName, Op: "submit", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, &Error{Payer: a.payerName, Op: "submit", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		a.logger.Warn().
			Str("payer", a.payerName).
			Int("status", resp.StatusCode).
			Str("request_id", req.RequestID).
			Msg("gateway rejected submission")
		return nil, &Error{
			Payer: a.payerName,
			Op:    "submit",
			Err:   fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, readErrorBody(resp.Body)),
		}
	}

	var ack gatewaySubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return nil, &Error{Payer: a.payerName, Op: "submit", Err: fmt.Errorf("decoding response: %w", err)}
	}
	if ack.ExternalRef == "" {
		return nil, &Error{Payer: a.payerName, Op: "submit", Err: fmt.Errorf("gateway response missing external_ref")}
	}

	disposition := Disposition(ack.Status)
	if ack.Status == "" {
		disposition = DispositionSubmitted
	}
	if !ValidDisposition(disposition) {
		return nil, &Error{Payer: a.payerName, Op: "submit", Err: fmt.Errorf("gateway returned unknown status %q", ack.Status)}
	}

	return &SubmitResult{
		ExternalRef:         ack.ExternalRef,
		Disposition:         disposition,
		Note:                ack.Note,
		RequestPayload:      body,
		ResponsePayload:     ack.Payload,
		EstimatedDecisionAt: ack.EstimatedDecisionTime,
	}, nil
}

func (a *GatewayAdapter) CheckStatus(ctx context.Context, requestID, externalRef string) (*StatusResult, error) {
	endpoint := fmt.Sprintf("%s/prior-auth/submissions/%s", a.baseURL, url.PathEscape(externalRef))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &Error{Payer: a.payerName, Op: "check_status", Err: err}
	}
	if a.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, &Error{Payer: a.payerName, Op: "check_status", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Payer: a.payerName,
			Op:    "check_status",
			Err:   fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, readErrorBody(resp.Body)),
		}
	}

	var body gatewayStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &Error{Payer: a.payerName, Op: "check_status", Err: fmt.Errorf("decoding response: %w", err)}
	}

	disposition := Disposition(body.Status)
	if !ValidDisposition(disposition) {
		return nil, &Error{Payer: a.payerName, Op: "check_status", Err: fmt.Errorf("gateway returned unknown status %q", body.Status)}
	}

	lastUpdated := time.Now().UTC()
	if body.LastUpdated != nil {
		lastUpdated = *body.LastUpdated
	}

	return &StatusResult{
		Disposition:     disposition,
		Note:            body.Note,
		ResponsePayload: body.Payload,
		LastUpdated:     lastUpdated,
	}, nil
}

// readErrorBody pulls a short error snippet from a failed gateway response.
func readErrorBody(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil || len(b) == 0 {
		return "(empty body)"
	}
	return string(b)
}
