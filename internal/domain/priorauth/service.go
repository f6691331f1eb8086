package priorauth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medloop/pa-api/internal/platform/audit"
	"github.com/medloop/pa-api/internal/platform/auth"
	"github.com/medloop/pa-api/internal/platform/db"
	"github.com/medloop/pa-api/internal/platform/payer"
)

// PatientDirectory is the patient collaborator boundary. Requests reference
// patients they do not own; only existence matters here.
type PatientDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// PrescriptionInfo carries the medication fields a prescription contributes
// to a new request.
type PrescriptionInfo struct {
	MedicationName string
	Strength       *string
	Quantity       *string
	Sig            *string
	PrescriberID   *string
	PrescriberNPI  *string
	PrescriberName *string
}

// PrescriptionSource is the prescription collaborator boundary. Get returns
// nil without error when the prescription does not exist.
type PrescriptionSource interface {
	Get(ctx context.Context, id uuid.UUID) (*PrescriptionInfo, error)
}

// Service is the prior authorization lifecycle controller. It enforces the
// state machine, drives the payer adapter registry, and keeps the history
// ledger in step with every status write.
type Service struct {
	repo          Repository
	adapters      *payer.Registry
	patients      PatientDirectory
	prescriptions PrescriptionSource
	audit         audit.Sink
	logger        zerolog.Logger
}

func NewService(repo Repository, adapters *payer.Registry, patients PatientDirectory,
	prescriptions PrescriptionSource, sink audit.Sink, logger zerolog.Logger) *Service {
	return &Service{
		repo:          repo,
		adapters:      adapters,
		patients:      patients,
		prescriptions: prescriptions,
		audit:         sink,
		logger:        logger,
	}
}

// CreateInput is the caller-supplied data for a new request.
type CreateInput struct {
	PatientID      uuid.UUID       `json:"patient_id"`
	PrescriptionID *uuid.UUID      `json:"prescription_id,omitempty"`
	MedicationName string          `json:"medication_name"`
	Strength       *string         `json:"strength,omitempty"`
	Quantity       *string         `json:"quantity,omitempty"`
	Sig            *string         `json:"sig,omitempty"`
	Payer          string          `json:"payer"`
	MemberID       string          `json:"member_id"`
	PrescriberID   *string         `json:"prescriber_id,omitempty"`
	PrescriberNPI  *string         `json:"prescriber_npi,omitempty"`
	PrescriberName *string         `json:"prescriber_name,omitempty"`
	RequestPayload json.RawMessage `json:"request_payload,omitempty"`
}

// Create validates input, verifies the referenced patient, and persists a
// new pending request with its initial "created" ledger entry.
func (s *Service) Create(ctx context.Context, in CreateInput) (*PriorAuthRequest, error) {
	if in.PatientID == uuid.Nil {
		return nil, &ValidationError{Field: "patient_id", Message: "is required"}
	}
	if in.Payer == "" {
		return nil, &ValidationError{Field: "payer", Message: "is required"}
	}
	if in.MemberID == "" {
		return nil, &ValidationError{Field: "member_id", Message: "is required"}
	}
	if in.MedicationName == "" && in.PrescriptionID == nil {
		return nil, &ValidationError{Field: "medication_name", Message: "is required when no prescription is referenced"}
	}

	exists, err := s.patients.Exists(ctx, in.PatientID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &NotFoundError{Resource: "patient", ID: in.PatientID.String()}
	}

	req := &PriorAuthRequest{
		TenantID:       db.TenantFromContext(ctx),
		PatientID:      in.PatientID,
		PrescriptionID: in.PrescriptionID,
		MedicationName: in.MedicationName,
		Strength:       in.Strength,
		Quantity:       in.Quantity,
		Sig:            in.Sig,
		Payer:          in.Payer,
		MemberID:       in.MemberID,
		PrescriberID:   in.PrescriberID,
		PrescriberNPI:  in.PrescriberNPI,
		PrescriberName: in.PrescriberName,
		Status:         StatusPending,
		RequestPayload: in.RequestPayload,
		Attachments:    []Attachment{},
	}

	if in.PrescriptionID != nil {
		rx, err := s.prescriptions.Get(ctx, *in.PrescriptionID)
		if err != nil {
			return nil, err
		}
		if rx == nil {
			return nil, &NotFoundError{Resource: "prescription", ID: in.PrescriptionID.String()}
		}
		hydrateFromPrescription(req, rx)
	}

	actor := auth.UserIDFromContext(ctx)
	entry := &HistoryEntry{
		Event:   EventCreated,
		Status:  StatusPending,
		ActorID: optional(actor),
		Notes:   ptr("PA request created"),
	}

	if err := s.repo.Create(ctx, req, entry); err != nil {
		return nil, err
	}
	req.History = []HistoryEntry{*entry}

	s.audit.Record(ctx, audit.Entry{
		TenantID:     req.TenantID,
		ActorID:      actor,
		Action:       "prior_auth.create",
		ResourceType: "prior_auth_request",
		ResourceID:   req.ID.String(),
	})
	return req, nil
}

// hydrateFromPrescription fills medication and prescriber fields the caller
// left empty from the referenced prescription.
func hydrateFromPrescription(req *PriorAuthRequest, rx *PrescriptionInfo) {
	if req.MedicationName == "" {
		req.MedicationName = rx.MedicationName
	}
	if req.Strength == nil {
		req.Strength = rx.Strength
	}
	if req.Quantity == nil {
		req.Quantity = rx.Quantity
	}
	if req.Sig == nil {
		req.Sig = rx.Sig
	}
	if req.PrescriberID == nil {
		req.PrescriberID = rx.PrescriberID
	}
	if req.PrescriberNPI == nil {
		req.PrescriberNPI = rx.PrescriberNPI
	}
	if req.PrescriberName == nil {
		req.PrescriberName = rx.PrescriberName
	}
}

// SubmitOutcome is the caller-visible result of a submission.
type SubmitOutcome struct {
	Status              Status     `json:"status"`
	StatusReason        *string    `json:"status_reason,omitempty"`
	ExternalRef         *string    `json:"external_reference_id,omitempty"`
	EstimatedDecisionAt *time.Time `json:"estimated_decision_time,omitempty"`
}

// submitStatuses are the statuses an adapter may hand back from Submit.
var submitStatuses = map[Status]bool{
	StatusSubmitted: true,
	StatusApproved:  true,
	StatusDenied:    true,
	StatusNeedsInfo: true,
	StatusError:     true,
}

// Submit files a pending request with its payer. The pending precondition
// is enforced twice: an early check producing a descriptive error, and a
// conditional update in the repository guarding against a concurrent
// submit racing past the first check.
func (s *Service) Submit(ctx context.Context, id uuid.UUID) (*SubmitOutcome, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, &InvalidStateTransitionError{Operation: "submit", Current: req.Status}
	}

	adapter := s.adapters.Resolve(req.Payer)
	result, err := adapter.Submit(ctx, s.normalizedRequest(req))
	if err != nil {
		s.logger.Error().Err(err).
			Str("request_id", req.ID.String()).
			Str("payer", req.Payer).
			Msg("payer submit failed")
		return nil, &IntegrationError{Payer: req.Payer, Err: err}
	}

	newStatus := Status(result.Disposition)
	if !submitStatuses[newStatus] {
		return nil, &IntegrationError{Payer: req.Payer, Err: &payer.Error{
			Payer: adapter.Name(), Op: "submit",
			Err: &ValidationError{Field: "status", Message: string(result.Disposition)},
		}}
	}

	req.Status = newStatus
	req.StatusReason = optional(result.Note)
	if req.ExternalRef == nil && result.ExternalRef != "" {
		req.ExternalRef = &result.ExternalRef
	}
	if result.RequestPayload != nil {
		req.RequestPayload = result.RequestPayload
	}
	req.ResponsePayload = result.ResponsePayload

	entry := &HistoryEntry{
		Event:       EventSubmitted,
		Status:      newStatus,
		ActorID:     optional(auth.UserIDFromContext(ctx)),
		Notes:       req.StatusReason,
		ExternalRef: req.ExternalRef,
	}

	if err := s.repo.MarkSubmitted(ctx, req, entry); err != nil {
		if errors.Is(err, errSubmitConflict) {
			fresh, rerr := s.repo.GetByID(ctx, id)
			if rerr != nil {
				return nil, rerr
			}
			return nil, &InvalidStateTransitionError{Operation: "submit", Current: fresh.Status}
		}
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		TenantID:     req.TenantID,
		ActorID:      auth.UserIDFromContext(ctx),
		Action:       "prior_auth.submit",
		ResourceType: "prior_auth_request",
		ResourceID:   req.ID.String(),
	})

	return &SubmitOutcome{
		Status:              newStatus,
		StatusReason:        req.StatusReason,
		ExternalRef:         req.ExternalRef,
		EstimatedDecisionAt: result.EstimatedDecisionAt,
	}, nil
}

// normalizedRequest builds the payer-neutral submission the adapter
// translates into its own protocol.
func (s *Service) normalizedRequest(req *PriorAuthRequest) *payer.SubmitRequest {
	sub := &payer.SubmitRequest{
		RequestID:      req.ID.String(),
		TenantID:       req.TenantID,
		PayerName:      req.Payer,
		PatientID:      req.PatientID.String(),
		MedicationName: req.MedicationName,
		Payload:        req.RequestPayload,
	}
	if req.PrescriptionID != nil {
		sub.PrescriptionID = req.PrescriptionID.String()
	}
	for _, a := range req.Attachments {
		sub.Attachments = append(sub.Attachments, payer.Attachment{
			Name:        a.FileName,
			ContentType: a.FileType,
			URL:         a.FileURL,
		})
	}
	return sub
}

// StatusView is the payer's current view of a request plus the stored ledger.
type StatusView struct {
	Status       Status         `json:"status"`
	StatusReason *string        `json:"status_reason,omitempty"`
	ExternalRef  *string        `json:"external_reference_id,omitempty"`
	LastUpdated  time.Time      `json:"last_updated"`
	History      []HistoryEntry `json:"history"`
}

// reconcileStatuses are the statuses an adapter may report from CheckStatus.
var reconcileStatuses = map[Status]bool{
	StatusSubmitted: true,
	StatusApproved:  true,
	StatusDenied:    true,
	StatusNeedsInfo: true,
}

// CheckStatus asks the payer for the request's current disposition and
// reconciles it into the stored record. When the payer reports no change
// the operation is read-only: no write, no ledger append.
func (s *Service) CheckStatus(ctx context.Context, id uuid.UUID) (*StatusView, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	adapter := s.adapters.Resolve(req.Payer)
	externalRef := ""
	if req.ExternalRef != nil {
		externalRef = *req.ExternalRef
	}

	result, err := adapter.CheckStatus(ctx, req.ID.String(), externalRef)
	if err != nil {
		s.logger.Error().Err(err).
			Str("request_id", req.ID.String()).
			Str("payer", req.Payer).
			Msg("payer status check failed")
		return nil, &IntegrationError{Payer: req.Payer, Err: err}
	}

	newStatus := Status(result.Disposition)
	if !reconcileStatuses[newStatus] {
		return nil, &IntegrationError{Payer: req.Payer, Err: &payer.Error{
			Payer: adapter.Name(), Op: "check_status",
			Err: &ValidationError{Field: "status", Message: string(result.Disposition)},
		}}
	}

	if newStatus != req.Status {
		req.Status = newStatus
		req.StatusReason = optional(result.Note)
		if result.ResponsePayload != nil {
			req.ResponsePayload = result.ResponsePayload
		}

		entry := &HistoryEntry{
			Event:  EventStatusCheck,
			Status: newStatus,
			Notes:  req.StatusReason,
		}
		if err := s.repo.Reconcile(ctx, req, entry); err != nil {
			return nil, err
		}

		s.audit.Record(ctx, audit.Entry{
			TenantID:     req.TenantID,
			ActorID:      auth.UserIDFromContext(ctx),
			Action:       "prior_auth.status_check",
			ResourceType: "prior_auth_request",
			ResourceID:   req.ID.String(),
		})
	}

	history, err := s.repo.History(ctx, id)
	if err != nil {
		return nil, err
	}

	return &StatusView{
		Status:       newStatus,
		StatusReason: optional(result.Note),
		ExternalRef:  req.ExternalRef,
		LastUpdated:  result.LastUpdated,
		History:      history,
	}, nil
}

// UpdateInput is a partial manual update. Nil fields are left untouched;
// Attachments, when present, replaces the stored list wholesale.
type UpdateInput struct {
	Status       *Status      `json:"status,omitempty"`
	StatusReason *string      `json:"status_reason,omitempty"`
	Attachments  []Attachment `json:"attachments,omitempty"`
}

// Update records an operator-supplied change, typically a payer decision
// received by phone or fax. Terminal records stay reachable through this
// path.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*PriorAuthRequest, error) {
	if in.Status == nil && in.StatusReason == nil && in.Attachments == nil {
		return nil, &ValidationError{Message: "No valid fields to update"}
	}
	if in.Status != nil && !Overridable(*in.Status) {
		return nil, &ValidationError{Field: "status", Message: "must be one of approved, denied, needs_info"}
	}

	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Status != nil {
		req.Status = *in.Status
	}
	if in.StatusReason != nil {
		req.StatusReason = in.StatusReason
	}
	if in.Attachments != nil {
		req.Attachments = in.Attachments
	}

	notes := "PA request updated"
	if in.StatusReason != nil {
		notes = *in.StatusReason
	}

	actor := auth.UserIDFromContext(ctx)
	entry := &HistoryEntry{
		Event:   EventUpdated,
		Status:  req.Status,
		ActorID: optional(actor),
		Notes:   &notes,
	}

	if err := s.repo.Update(ctx, req, entry); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		TenantID:     req.TenantID,
		ActorID:      actor,
		Action:       "prior_auth.update",
		ResourceType: "prior_auth_request",
		ResourceID:   req.ID.String(),
	})

	req.History, err = s.repo.History(ctx, id)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Get returns one request with its full ledger.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*PriorAuthRequest, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	req.History, err = s.repo.History(ctx, id)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// List returns requests matching the filter, newest first.
func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*PriorAuthRequest, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// Payers returns the payer names with electronic integrations.
func (s *Service) Payers() []string {
	return s.adapters.Payers()
}

func ptr(s string) *string { return &s }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
