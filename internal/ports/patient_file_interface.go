package ports

import (
	"context"

	"secure-health-server/internal/model"

	"github.com/jmoiron/sqlx"
)

// PatientFileRepository : SQL слой для файлов пациентов, загружаемых врачами
type PatientFileRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, file *model.PatientFile) error
	GetByUUID(ctx context.Context, exec sqlx.ExtContext, fileUUID string) (*model.PatientFile, error)
	ListByDoctor(ctx context.Context, exec sqlx.ExtContext, doctorUUID string, cursor string, limit int) ([]model.PatientFile, string, error)
	Delete(ctx context.Context, exec sqlx.ExtContext, fileUUID string, doctorUUID string) (string, error)
	BeginTX(ctx context.Context) (sqlx.ExtContext, func() error, func() error, error)
}

type PatientFileService interface {
	CreateFile(ctx context.Context, file *model.PatientFile) (string, error)
	GetFile(ctx context.Context, fileUUID string) (*model.PatientFileResult, error)
	ListFiles(ctx context.Context, cursor string, limit int) ([]model.PatientFile, string, error)
	DeleteFile(ctx context.Context, fileUUID string) error
}
