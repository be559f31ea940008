package ports

import (
	"context"

	"secure-health-server/internal/model"

	"github.com/jmoiron/sqlx"
)

// PatientRepository : SQL слой для медицинских карт пациентов
type PatientRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, patient *model.Patient) error
	GetByUUID(ctx context.Context, exec sqlx.ExtContext, patientUUID string) (*model.Patient, error)
	ListByUploader(ctx context.Context, exec sqlx.ExtContext, uploaderUUID string, cursor string, limit int) ([]model.Patient, string, error)
	Delete(ctx context.Context, exec sqlx.ExtContext, patientUUID string, uploaderUUID string) (string, error)
	BeginTX(ctx context.Context) (sqlx.ExtContext, func() error, func() error, error)
}

type PatientService interface {
	CreatePatient(ctx context.Context, patient *model.Patient) (*model.Patient, error)
	GetPatient(ctx context.Context, patientUUID string) (*model.PatientResult, error)
	ListPatients(ctx context.Context, cursor string, limit int) ([]model.Patient, string, error)
	DeletePatient(ctx context.Context, patientUUID string) error
}
