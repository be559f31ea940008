package ports

import (
	"context"

	"secure-health-server/internal/model"
)

// AccessService : протокол одноразовых кодов доступа — выдача, доставка, погашение
type AccessService interface {
	IssueFileGrant(ctx context.Context, fileUUID, recipientEmail string) (string, error)
	RedeemFileGrant(ctx context.Context, fileUUID, email, code string) (*model.PatientFileResult, error)
	IssuePatientGrant(ctx context.Context, patientUUID, recipientEmail string) (string, error)
	RedeemPatientGrant(ctx context.Context, patientUUID, email, code string) (*model.PatientResult, error)
}
