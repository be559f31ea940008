package ports

import (
	"context"

	"secure-health-server/internal/model"
)

// CacheRepository : Redis слой
type CacheRepository interface {
	SetPatientFile(ctx context.Context, file *model.PatientFile) error
	GetPatientFile(ctx context.Context, uuid string) (*model.PatientFile, error)
	DeletePatientFile(ctx context.Context, uuid string) error

	SetPatient(ctx context.Context, patient *model.Patient) error
	GetPatient(ctx context.Context, uuid string) (*model.Patient, error)
	DeletePatient(ctx context.Context, uuid string) error
}
