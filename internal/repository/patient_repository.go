package repository

import (
	"context"

	"secure-health-server/config"
	"secure-health-server/internal/model"

	"github.com/jmoiron/sqlx"
)

type PatientRepository struct {
	*config.Database
}

func NewPatientRepository(database *config.Database) *PatientRepository {
	return &PatientRepository{database}
}

const patientColumns = `
	uuid, full_name, date_of_birth, gender, national_id, address, phone, email,
	medical_history, diagnosis, lab_results, imaging_reports, prescriptions, immunizations,
	insurance_details, payment_info, bank_account,
	uploaded_by, pdf_path, otp, access_email, uploaded_at, deleted_at
`

// Create : сохраняет новую медицинскую карту.
// Колонок много, поэтому вставка идёт через named-параметры
func (r *PatientRepository) Create(ctx context.Context, exec sqlx.ExtContext, patient *model.Patient) error {
	query := `
		INSERT INTO patients (uuid, full_name, date_of_birth, gender, national_id, address, phone, email,
			medical_history, diagnosis, lab_results, imaging_reports, prescriptions, immunizations,
			insurance_details, payment_info, bank_account, uploaded_by, pdf_path)
		VALUES (:uuid, :full_name, :date_of_birth, :gender, :national_id, :address, :phone, :email,
			:medical_history, :diagnosis, :lab_results, :imaging_reports, :prescriptions, :immunizations,
			:insurance_details, :payment_info, :bank_account, :uploaded_by, :pdf_path)
	`
	_, err := sqlx.NamedExecContext(ctx, exec, query, patient)
	return err
}

// GetByUUID : возвращает карту по UUID без проверки владельца.
// Используется и на пути погашения кода, где запрашивающий не авторизован
func (r *PatientRepository) GetByUUID(ctx context.Context, exec sqlx.ExtContext, patientUUID string) (*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE uuid = $1 AND deleted_at IS NULL`

	var patient model.Patient
	err := sqlx.GetContext(ctx, exec, &patient, query, patientUUID)
	if err != nil {
		return nil, err
	}

	return &patient, nil
}

// ListByUploader : список карт, созданных сотрудником (cursor по uploaded_at)
func (r *PatientRepository) ListByUploader(ctx context.Context, exec sqlx.ExtContext, uploaderUUID string, cursor string, limit int) ([]model.Patient, string, error) {
	queryDesc := `
		SELECT ` + patientColumns + `
		FROM patients
		WHERE uploaded_by = $1 AND deleted_at IS NULL
		ORDER BY uploaded_at DESC
		LIMIT $2
	`
	queryAsc := `
		SELECT ` + patientColumns + `
		FROM patients
		WHERE uploaded_by = $1 AND deleted_at IS NULL AND uploaded_at > $2
		ORDER BY uploaded_at ASC
		LIMIT $3
	`

	patients := []model.Patient{}
	var rows *sqlx.Rows
	var err error

	if cursor == "" {
		rows, err = exec.QueryxContext(ctx, queryDesc, uploaderUUID, limit)
	} else {
		rows, err = exec.QueryxContext(ctx, queryAsc, uploaderUUID, cursor, limit)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	for rows.Next() {
		var patient model.Patient
		if err := rows.StructScan(&patient); err != nil {
			return nil, "", err
		}
		patients = append(patients, patient)
	}

	var nextCursor string
	if len(patients) > 0 {
		nextCursor = patients[len(patients)-1].UploadedAt.Format("2006-01-02T15:04:05.999999Z07:00")
	}

	return patients, nextCursor, nil
}

// Delete : только создавший сотрудник может удалить карту
func (r *PatientRepository) Delete(ctx context.Context, exec sqlx.ExtContext, patientUUID string, uploaderUUID string) (string, error) {
	query := `
		UPDATE patients
		SET deleted_at = NOW()
		WHERE uuid = $1 AND uploaded_by = $2 AND deleted_at IS NULL
		RETURNING pdf_path
	`

	var pdfPath string
	err := sqlx.GetContext(ctx, exec, &pdfPath, query, patientUUID, uploaderUUID)
	if err != nil {
		return "", err
	}

	return pdfPath, nil
}

func (r *PatientRepository) BeginTX(ctx context.Context) (sqlx.ExtContext, func() error, func() error, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	return tx, func() error { return tx.Rollback() }, func() error { return tx.Commit() }, nil
}
