package model

import "time"

// Patient : полная запись пациента, созданная сотрудником management.
// Из структурированных полей при создании генерируется PDF, который
// хранится в S3 по ключу PDFPath.
type Patient struct {
	UUID        string `db:"uuid" json:"uuid"`
	FullName    string `db:"full_name" json:"full_name"`
	DateOfBirth string `db:"date_of_birth" json:"date_of_birth"`
	Gender      string `db:"gender" json:"gender"`
	NationalID  string `db:"national_id" json:"national_id"`
	Address     string `db:"address" json:"address"`
	Phone       string `db:"phone" json:"phone"`
	Email       string `db:"email" json:"email"`

	MedicalHistory string `db:"medical_history" json:"medical_history"`
	Diagnosis      string `db:"diagnosis" json:"diagnosis"`
	LabResults     string `db:"lab_results" json:"lab_results"`
	ImagingReports string `db:"imaging_reports" json:"imaging_reports"`
	Prescriptions  string `db:"prescriptions" json:"prescriptions"`
	Immunizations  string `db:"immunizations" json:"immunizations"`

	InsuranceDetails string `db:"insurance_details" json:"insurance_details"`
	PaymentInfo      string `db:"payment_info" json:"payment_info"`
	BankAccount      string `db:"bank_account" json:"bank_account"`

	UploadedBy  string     `db:"uploaded_by" json:"uploaded_by"`
	PDFPath     string     `db:"pdf_path" json:"-"`
	OTP         *string    `db:"otp" json:"-"`
	AccessEmail *string    `db:"access_email" json:"-"`
	UploadedAt  time.Time  `db:"uploaded_at" json:"uploaded_at"`
	DeletedAt   *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Grant : текущий невостребованный грант доступа или nil
func (p *Patient) Grant() *Grant {
	return grantOf(p.OTP, p.AccessEmail)
}

type PatientResult struct {
	Patient *Patient
	GetURL  string // pre-signed URL на сгенерированный PDF
}
