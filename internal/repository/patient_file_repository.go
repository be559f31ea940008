package repository

import (
	"context"

	"secure-health-server/config"
	"secure-health-server/internal/model"

	"github.com/jmoiron/sqlx"
)

type PatientFileRepository struct {
	*config.Database
}

func NewPatientFileRepository(database *config.Database) *PatientFileRepository {
	return &PatientFileRepository{database}
}

// Create : сохраняет метаданные нового файла пациента
func (r *PatientFileRepository) Create(ctx context.Context, exec sqlx.ExtContext, file *model.PatientFile) error {
	query := `
		INSERT INTO patient_files (uuid, doctor_uuid, patient_name, patient_id, disease, filename, mime_type, size_bytes, storage_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := exec.ExecContext(
		ctx,
		query,
		file.UUID,
		file.DoctorUUID,
		file.PatientName,
		file.PatientID,
		file.Disease,
		file.Filename,
		file.MimeType,
		file.SizeBytes,
		file.StoragePath)

	return err
}

// GetByUUID : возвращает файл по UUID без проверки владельца.
// Используется и на пути погашения кода, где запрашивающий не авторизован
func (r *PatientFileRepository) GetByUUID(ctx context.Context, exec sqlx.ExtContext, fileUUID string) (*model.PatientFile, error) {
	query := `
		SELECT uuid, doctor_uuid, patient_name, patient_id, disease, filename, mime_type,
		       size_bytes, storage_path, otp, access_email, uploaded_at, deleted_at
		FROM patient_files
		WHERE uuid = $1 AND deleted_at IS NULL
	`

	var file model.PatientFile
	err := sqlx.GetContext(ctx, exec, &file, query, fileUUID)
	if err != nil {
		return nil, err
	}

	return &file, nil
}

// ListByDoctor : список файлов врача (cursor по uploaded_at)
func (r *PatientFileRepository) ListByDoctor(ctx context.Context, exec sqlx.ExtContext, doctorUUID string, cursor string, limit int) ([]model.PatientFile, string, error) {
	queryDesc := `
		SELECT uuid, doctor_uuid, patient_name, patient_id, disease, filename, mime_type,
		       size_bytes, storage_path, otp, access_email, uploaded_at, deleted_at
		FROM patient_files
		WHERE doctor_uuid = $1 AND deleted_at IS NULL
		ORDER BY uploaded_at DESC
		LIMIT $2
	`
	queryAsc := `
		SELECT uuid, doctor_uuid, patient_name, patient_id, disease, filename, mime_type,
		       size_bytes, storage_path, otp, access_email, uploaded_at, deleted_at
		FROM patient_files
		WHERE doctor_uuid = $1 AND deleted_at IS NULL AND uploaded_at > $2
		ORDER BY uploaded_at ASC
		LIMIT $3
	`

	files := []model.PatientFile{}
	var rows *sqlx.Rows
	var err error

	if cursor == "" {
		rows, err = exec.QueryxContext(ctx, queryDesc, doctorUUID, limit)
	} else {
		rows, err = exec.QueryxContext(ctx, queryAsc, doctorUUID, cursor, limit)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	for rows.Next() {
		var file model.PatientFile
		if err := rows.StructScan(&file); err != nil {
			return nil, "", err
		}
		files = append(files, file)
	}

	var nextCursor string
	if len(files) > 0 {
		nextCursor = files[len(files)-1].UploadedAt.Format("2006-01-02T15:04:05.999999Z07:00")
	}

	return files, nextCursor, nil
}

// Delete : только загрузивший врач может удалить файл
func (r *PatientFileRepository) Delete(ctx context.Context, exec sqlx.ExtContext, fileUUID string, doctorUUID string) (string, error) {
	query := `
		UPDATE patient_files
		SET deleted_at = NOW()
		WHERE uuid = $1 AND doctor_uuid = $2 AND deleted_at IS NULL
		RETURNING storage_path
	`

	var storagePath string
	err := sqlx.GetContext(ctx, exec, &storagePath, query, fileUUID, doctorUUID)
	if err != nil {
		return "", err
	}

	return storagePath, nil
}

func (r *PatientFileRepository) BeginTX(ctx context.Context) (sqlx.ExtContext, func() error, func() error, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	return tx, func() error { return tx.Rollback() }, func() error { return tx.Commit() }, nil
}
