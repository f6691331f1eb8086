package payer

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"
)

// SandboxAdapter is a deterministic in-memory adapter for development and
// demos. Submissions are acknowledged instantly; the eventual disposition
// is derived from the request ID, so the same request always resolves the
// same way. The external reference embeds the medication name: requests
// whose medication name contains "deny" are denied and those containing
// "info" come back needing more information, which makes exercising
// specific paths from a dev client straightforward.
type SandboxAdapter struct{}

// NewSandboxAdapter creates the sandbox adapter.
func NewSandboxAdapter() *SandboxAdapter {
	return &SandboxAdapter{}
}

func (a *SandboxAdapter) Name() string { return "sandbox" }

func (a *SandboxAdapter) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	eta := time.Now().UTC().Add(72 * time.Hour)
	return &SubmitResult{
		ExternalRef:         sandboxRef(req),
		Disposition:         DispositionSubmitted,
		Note:                "accepted by sandbox",
		EstimatedDecisionAt: &eta,
	}, nil
}

// sandboxRef embeds a slug of the medication name in the reference so the
// deny/info status rules can be triggered from request data.
func sandboxRef(req *SubmitRequest) string {
	slug := strings.Join(strings.Fields(strings.ToLower(req.MedicationName)), "-")
	if slug == "" {
		return fmt.Sprintf("SBX-%s", req.RequestID)
	}
	return fmt.Sprintf("SBX-%s-%s", slug, req.RequestID)
}

func (a *SandboxAdapter) CheckStatus(ctx context.Context, requestID, externalRef string) (*StatusResult, error) {
	now := time.Now().UTC()
	lower := strings.ToLower(externalRef)
	switch {
	case strings.Contains(lower, "deny"):
		return &StatusResult{Disposition: DispositionDenied, Note: "denied by sandbox rule", LastUpdated: now}, nil
	case strings.Contains(lower, "info"):
		return &StatusResult{Disposition: DispositionNeedsInfo, Note: "sandbox requests more information", LastUpdated: now}, nil
	}

	h := fnv.New32a()
	h.Write([]byte(requestID))
	if h.Sum32()%4 == 0 {
		return &StatusResult{Disposition: DispositionDenied, Note: "denied by sandbox", LastUpdated: now}, nil
	}
	return &StatusResult{Disposition: DispositionApproved, Note: "approved by sandbox", LastUpdated: now}, nil
}
