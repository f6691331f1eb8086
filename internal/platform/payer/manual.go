package payer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ManualAdapter is the fallback for payers without an electronic
// integration. Submissions are acknowledged immediately with a locally
// generated reference; the actual filing happens out of band (fax, portal,
// phone) and the disposition is recorded later through the review API.
type ManualAdapter struct{}

// NewManualAdapter creates the manual fallback adapter.
func NewManualAdapter() *ManualAdapter {
	return &ManualAdapter{}
}

func (a *ManualAdapter) Name() string { return "manual" }

func (a *ManualAdapter) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, &Error{Payer: a.Name(), Op: "submit", Err: err}
	}
	return &SubmitResult{
		ExternalRef:    fmt.Sprintf("MAN-%s", uuid.New().String()),
		Disposition:    DispositionSubmitted,
		Note:           "queued for manual submission",
		RequestPayload: payload,
	}, nil
}

func (a *ManualAdapter) CheckStatus(ctx context.Context, requestID, externalRef string) (*StatusResult, error) {
	// Manual requests have no upstream to poll; they stay submitted until
	// a reviewer records the payer's decision.
	return &StatusResult{
		Disposition: DispositionSubmitted,
		Note:        "pending payer review",
		LastUpdated: time.Now().UTC(),
	}, nil
}
