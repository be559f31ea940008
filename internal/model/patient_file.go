package model

import "time"

// PatientFile : файл с медицинскими данными пациента, загруженный врачом.
// Хранится в S3, метаданные — в БД. Поля OTP и AccessEmail задаются и
// очищаются только вместе (см. Grant).
type PatientFile struct {
	UUID        string     `db:"uuid" json:"uuid"`
	DoctorUUID  string     `db:"doctor_uuid" json:"doctor_uuid"`
	PatientName string     `db:"patient_name" json:"patient_name"`
	PatientID   string     `db:"patient_id" json:"patient_id"`
	Disease     string     `db:"disease" json:"disease"`
	Filename    string     `db:"filename" json:"filename"`
	MimeType    string     `db:"mime_type" json:"mime_type"`
	SizeBytes   int64      `db:"size_bytes" json:"size_bytes"`
	StoragePath string     `db:"storage_path" json:"-"`
	OTP         *string    `db:"otp" json:"-"`
	AccessEmail *string    `db:"access_email" json:"-"`
	UploadedAt  time.Time  `db:"uploaded_at" json:"uploaded_at"`
	DeletedAt   *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Grant : текущий невостребованный грант доступа или nil
func (f *PatientFile) Grant() *Grant {
	return grantOf(f.OTP, f.AccessEmail)
}

type PatientFileResult struct {
	File   *PatientFile
	GetURL string // pre-signed URL на файл в S3
}
