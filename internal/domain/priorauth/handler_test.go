package priorauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newHandlerFixture(t *testing.T) (*Handler, *fixture) {
	t.Helper()
	fx := newFixture(t)
	return NewHandler(fx.svc), fx
}

func doJSON(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandlerCreate_Success(t *testing.T) {
	h, fx := newHandlerFixture(t)
	e := echo.New()

	body := `{"patient_id":"` + fx.patient.String() + `","medication_name":"Dupixent","payer":"Blue Cross","member_id":"M123"}`
	c, rec := doJSON(e, http.MethodPost, "/api/v1/prior-auth-requests", body)

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created PriorAuthRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if created.Status != StatusPending {
		t.Errorf("expected pending, got %s", created.Status)
	}
	if len(created.History) != 1 {
		t.Errorf("expected 1 history entry, got %d", len(created.History))
	}
}

func TestHandlerCreate_ValidationError(t *testing.T) {
	h, fx := newHandlerFixture(t)
	e := echo.New()

	body := `{"patient_id":"` + fx.patient.String() + `","medication_name":"Dupixent","member_id":"M123"}`
	c, _ := doJSON(e, http.MethodPost, "/api/v1/prior-auth-requests", body)

	err := h.Create(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", httpErr.Code)
	}
}

func TestHandlerCreate_PatientNotFound(t *testing.T) {
	h, _ := newHandlerFixture(t)
	e := echo.New()

	body := `{"patient_id":"` + uuid.New().String() + `","medication_name":"Dupixent","payer":"Blue Cross","member_id":"M123"}`
	c, _ := doJSON(e, http.MethodPost, "/api/v1/prior-auth-requests", body)

	err := h.Create(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", httpErr.Code)
	}
}

func TestHandlerGet_NotFound(t *testing.T) {
	h, _ := newHandlerFixture(t)
	e := echo.New()

	c, _ := doJSON(e, http.MethodGet, "/api/v1/prior-auth-requests/x", "")
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.Get(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", httpErr.Code)
	}
}

func TestHandlerGet_InvalidID(t *testing.T) {
	h, _ := newHandlerFixture(t)
	e := echo.New()

	c, _ := doJSON(e, http.MethodGet, "/api/v1/prior-auth-requests/nope", "")
	c.SetParamNames("id")
	c.SetParamValues("nope")

	err := h.Get(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", httpErr.Code)
	}
}

func TestHandlerSubmit_Success(t *testing.T) {
	h, fx := newHandlerFixture(t)
	e := echo.New()
	req := fx.create(t)

	c, rec := doJSON(e, http.MethodPost, "/api/v1/prior-auth-requests/x/submit", "")
	c.SetParamNames("id")
	c.SetParamValues(req.ID.String())

	if err := h.Submit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var outcome SubmitOutcome
	if err := json.Unmarshal(rec.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if outcome.Status != StatusSubmitted {
		t.Errorf("expected submitted, got %s", outcome.Status)
	}
	if outcome.ExternalRef == nil || *outcome.ExternalRef != "EXT-123" {
		t.Errorf("expected EXT-123, got %v", outcome.ExternalRef)
	}
}

func TestHandlerSubmit_InvalidState(t *testing.T) {
	h, fx := newHandlerFixture(t)
	e := echo.New()
	req := fx.create(t)
	if _, err := fx.svc.Submit(context.Background(), req.ID); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	c, _ := doJSON(e, http.MethodPost, "/api/v1/prior-auth-requests/x/submit", "")
	c.SetParamNames("id")
	c.SetParamValues(req.ID.String())

	err := h.Submit(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", httpErr.Code)
	}
	msg, _ := httpErr.Message.(string)
	if !strings.Contains(msg, "submitted") {
		t.Errorf("expected current status in error message, got %q", msg)
	}
}

func TestHandlerSubmit_IntegrationError(t *testing.T) {
	h, fx := newHandlerFixture(t)
	e := echo.New()
	req := fx.create(t)

	fx.adapter.submitErr = context.DeadlineExceeded

	c, _ := doJSON(e, http.MethodPost, "/api/v1/prior-auth-requests/x/submit", "")
	c.SetParamNames("id")
	c.SetParamValues(req.ID.String())

	err := h.Submit(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", httpErr.Code)
	}
}

func TestHandlerCheckStatus_ReturnsHistory(t *testing.T) {
	h, fx := newHandlerFixture(t)
	e := echo.New()
	req := fx.create(t)
	if _, err := fx.svc.Submit(context.Background(), req.ID); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	c, rec := doJSON(e, http.MethodGet, "/api/v1/prior-auth-requests/x/status", "")
	c.SetParamNames("id")
	c.SetParamValues(req.ID.String())

	if err := h.CheckStatus(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var view StatusView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if view.Status != StatusSubmitted {
		t.Errorf("expected submitted, got %s", view.Status)
	}
	if len(view.History) != 2 {
		t.Errorf("expected 2 history entries, got %d", len(view.History))
	}
}

func TestHandlerUpdate_EmptyBody(t *testing.T) {
	h, fx := newHandlerFixture(t)
	e := echo.New()
	req := fx.create(t)

	c, _ := doJSON(e, http.MethodPatch, "/api/v1/prior-auth-requests/x", `{}`)
	c.SetParamNames("id")
	c.SetParamValues(req.ID.String())

	err := h.Update(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", httpErr.Code)
	}
}

func TestHandlerUpdate_Success(t *testing.T) {
	h, fx := newHandlerFixture(t)
	e := echo.New()
	req := fx.create(t)

	c, rec := doJSON(e, http.MethodPatch, "/api/v1/prior-auth-requests/x",
		`{"status":"denied","status_reason":"not covered"}`)
	c.SetParamNames("id")
	c.SetParamValues(req.ID.String())

	if err := h.Update(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var updated PriorAuthRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if updated.Status != StatusDenied {
		t.Errorf("expected denied, got %s", updated.Status)
	}
	if len(updated.History) != 2 {
		t.Errorf("expected 2 history entries, got %d", len(updated.History))
	}
}

func TestHandlerList_FilterByStatus(t *testing.T) {
	h, fx := newHandlerFixture(t)
	e := echo.New()
	fx.create(t)
	req2 := fx.create(t)
	if _, err := fx.svc.Submit(context.Background(), req2.ID); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	c, rec := doJSON(e, http.MethodGet, "/api/v1/prior-auth-requests?status=submitted", "")
	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Data  []PriorAuthRequest `json:"data"`
		Total int                `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("expected 1 submitted request, got %d", resp.Total)
	}
}

func TestHandlerList_EmptyResultSerializesAsArray(t *testing.T) {
	h, _ := newHandlerFixture(t)
	e := echo.New()

	c, rec := doJSON(e, http.MethodGet, "/api/v1/prior-auth-requests", "")
	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("expected empty data array, got %s", rec.Body.String())
	}
}

func TestHandlerList_InvalidStatus(t *testing.T) {
	h, _ := newHandlerFixture(t)
	e := echo.New()

	c, _ := doJSON(e, http.MethodGet, "/api/v1/prior-auth-requests?status=bogus", "")
	err := h.List(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", httpErr.Code)
	}
}

func TestHandlerPayers(t *testing.T) {
	h, _ := newHandlerFixture(t)
	e := echo.New()

	c, rec := doJSON(e, http.MethodGet, "/api/v1/payers", "")
	if err := h.Payers(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Payers  []string `json:"payers"`
		Default string   `json:"default"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Default != "manual" {
		t.Errorf("expected manual default, got %s", resp.Default)
	}
	if len(resp.Payers) != 1 || resp.Payers[0] != "blue cross" {
		t.Errorf("expected [blue cross], got %v", resp.Payers)
	}
}
