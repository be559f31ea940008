package repository

import (
	"context"
	"database/sql"

	"secure-health-server/config"
	"secure-health-server/internal/util"

	"github.com/jmoiron/sqlx"
)

// GrantRepository : одноразовые коды доступа на записях.
// Код и email живут колонками прямо на строке записи, поэтому выдача и
// погашение — это один UPDATE, без промежуточных состояний для конкурентов.
type GrantRepository struct {
	database *config.Database
}

func NewGrantRepository(database *config.Database) *GrantRepository {
	return &GrantRepository{database: database}
}

// SetFileGrant : записывает пару (код, email) на файл, затирая предыдущую выдачу
func (r *GrantRepository) SetFileGrant(ctx context.Context, exec sqlx.ExtContext, fileUUID, code, email string) error {
	query := `
		UPDATE patient_files
		SET otp = $2, access_email = $3
		WHERE uuid = $1 AND deleted_at IS NULL
	`

	result, err := exec.ExecContext(ctx, query, fileUUID, code, email)
	if err != nil {
		return util.LogError("[GrantRepo] не удалось записать код доступа на файл", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return util.LogError("[GrantRepo] не удалось проверить, записан ли код доступа", err)
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// RedeemFileGrant : сравнивает и гасит код атомарно, возвращает ключ файла в S3.
// Код и привязанный email очищаются вместе. sql.ErrNoRows означает отказ:
// кода нет, код не совпал или email не совпал — причина не различается
func (r *GrantRepository) RedeemFileGrant(ctx context.Context, exec sqlx.ExtContext, fileUUID, email, code string) (string, error) {
	query := `
		UPDATE patient_files
		SET otp = NULL, access_email = NULL
		WHERE uuid = $1 AND deleted_at IS NULL
		  AND otp IS NOT NULL AND otp = $3 AND access_email = $2
		RETURNING storage_path
	`

	var storagePath string
	err := sqlx.GetContext(ctx, exec, &storagePath, query, fileUUID, email, code)
	if err != nil {
		return "", err
	}

	return storagePath, nil
}

func (r *GrantRepository) CheckFileOwner(ctx context.Context, exec sqlx.ExtContext, fileUUID, doctorUUID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM patient_files WHERE uuid = $1 AND doctor_uuid = $2 AND deleted_at IS NULL)`
	err := sqlx.GetContext(ctx, exec, &exists, query, fileUUID, doctorUUID)
	if err != nil {
		return false, util.LogError("[GrantRepo] не удалось проверить владельца файла", err)
	}
	return exists, nil
}

// SetPatientGrant : записывает пару (код, email) на медицинскую карту
func (r *GrantRepository) SetPatientGrant(ctx context.Context, exec sqlx.ExtContext, patientUUID, code, email string) error {
	query := `
		UPDATE patients
		SET otp = $2, access_email = $3
		WHERE uuid = $1 AND deleted_at IS NULL
	`

	result, err := exec.ExecContext(ctx, query, patientUUID, code, email)
	if err != nil {
		return util.LogError("[GrantRepo] не удалось записать код доступа на карту", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return util.LogError("[GrantRepo] не удалось проверить, записан ли код доступа", err)
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// RedeemPatientGrant : как RedeemFileGrant, но email сверяется с привязанным
// адресом ИЛИ с адресом владельца карты, а привязанный email остаётся
// на строке после погашения
func (r *GrantRepository) RedeemPatientGrant(ctx context.Context, exec sqlx.ExtContext, patientUUID, email, code string) (string, error) {
	query := `
		UPDATE patients AS p
		SET otp = NULL
		WHERE p.uuid = $1 AND p.deleted_at IS NULL
		  AND p.otp IS NOT NULL AND p.otp = $3
		  AND ($2 = p.access_email OR $2 = (SELECT u.email FROM users AS u WHERE u.uuid = p.uploaded_by))
		RETURNING p.pdf_path
	`

	var pdfPath string
	err := sqlx.GetContext(ctx, exec, &pdfPath, query, patientUUID, email, code)
	if err != nil {
		return "", err
	}

	return pdfPath, nil
}

func (r *GrantRepository) CheckPatientOwner(ctx context.Context, exec sqlx.ExtContext, patientUUID, uploaderUUID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM patients WHERE uuid = $1 AND uploaded_by = $2 AND deleted_at IS NULL)`
	err := sqlx.GetContext(ctx, exec, &exists, query, patientUUID, uploaderUUID)
	if err != nil {
		return false, util.LogError("[GrantRepo] не удалось проверить владельца карты", err)
	}
	return exists, nil
}
