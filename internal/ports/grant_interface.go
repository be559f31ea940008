package ports

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// GrantRepository : хранение одноразовых кодов доступа на записях.
// Выдача и погашение кода выполняются одним UPDATE по строке записи,
// поэтому конкурирующие запросы не видят частичных состояний.
type GrantRepository interface {
	// SetFileGrant : записывает пару (код, email) на файл, затирая предыдущую выдачу
	SetFileGrant(ctx context.Context, exec sqlx.ExtContext, fileUUID, code, email string) error
	// RedeemFileGrant : сравнивает и гасит код атомарно, возвращает ключ файла в S3.
	// sql.ErrNoRows означает отказ: кода нет, код не совпал или email не совпал.
	RedeemFileGrant(ctx context.Context, exec sqlx.ExtContext, fileUUID, email, code string) (string, error)
	CheckFileOwner(ctx context.Context, exec sqlx.ExtContext, fileUUID, doctorUUID string) (bool, error)

	SetPatientGrant(ctx context.Context, exec sqlx.ExtContext, patientUUID, code, email string) error
	// RedeemPatientGrant : как RedeemFileGrant, но email сверяется с привязанным
	// адресом ИЛИ с адресом владельца записи
	RedeemPatientGrant(ctx context.Context, exec sqlx.ExtContext, patientUUID, email, code string) (string, error)
	CheckPatientOwner(ctx context.Context, exec sqlx.ExtContext, patientUUID, uploaderUUID string) (bool, error)
}
