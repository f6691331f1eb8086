package prescription

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/medloop/pa-api/internal/domain/priorauth"
)

type Service struct {
	prescriptions PrescriptionRepository
}

func NewService(prescriptions PrescriptionRepository) *Service {
	return &Service{prescriptions: prescriptions}
}

func (s *Service) CreatePrescription(ctx context.Context, p *Prescription) error {
	if p.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if p.MedicationName == "" {
		return fmt.Errorf("medication_name is required")
	}
	return s.prescriptions.Create(ctx, p)
}

func (s *Service) GetPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.prescriptions.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return s.prescriptions.ListByPatient(ctx, patientID, limit, offset)
}

// Get satisfies the prior authorization controller's prescription boundary.
// A missing prescription yields nil, nil.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*priorauth.PrescriptionInfo, error) {
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	return &priorauth.PrescriptionInfo{
		MedicationName: p.MedicationName,
		Strength:       p.Strength,
		Quantity:       p.Quantity,
		Sig:            p.Sig,
		PrescriberID:   p.PrescriberID,
		PrescriberNPI:  p.PrescriberNPI,
		PrescriberName: p.PrescriberName,
	}, nil
}
