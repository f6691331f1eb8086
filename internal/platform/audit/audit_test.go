package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestLogSink_RecordsEntry(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	sink := NewLogSink(logger)

	sink.Record(context.Background(), Entry{
		TenantID:     "acme",
		ActorID:      "user-1",
		Action:       "prior_auth.submit",
		ResourceType: "prior_auth_request",
		ResourceID:   "req-123",
	})

	var logged map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logged); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}

	if logged["tenant_id"] != "acme" {
		t.Errorf("expected tenant_id=acme, got %v", logged["tenant_id"])
	}
	if logged["action"] != "prior_auth.submit" {
		t.Errorf("expected action=prior_auth.submit, got %v", logged["action"])
	}
	if logged["resource_id"] != "req-123" {
		t.Errorf("expected resource_id=req-123, got %v", logged["resource_id"])
	}
	if logged["message"] != "audit" {
		t.Errorf("expected message=audit, got %v", logged["message"])
	}
}
