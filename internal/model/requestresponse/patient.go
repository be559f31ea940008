package requestresponse

import "secure-health-server/internal/model"

// CreatePatientRequest : полная запись пациента
type CreatePatientRequest struct {
	FullName    string `json:"full_name" example:"John Doe"`
	DateOfBirth string `json:"date_of_birth" example:"1984-03-12"`
	Gender      string `json:"gender" example:"male"`
	NationalID  string `json:"national_id" example:"AB1234567"`
	Address     string `json:"address" example:"221B Baker Street"`
	Phone       string `json:"phone" example:"+1 555 0100"`
	Email       string `json:"email" example:"john.doe@example.com"`

	MedicalHistory string `json:"medical_history" example:"asthma since childhood"`
	Diagnosis      string `json:"diagnosis" example:"seasonal allergy"`
	LabResults     string `json:"lab_results" example:"CBC within normal limits"`
	ImagingReports string `json:"imaging_reports" example:"chest x-ray clear"`
	Prescriptions  string `json:"prescriptions" example:"cetirizine 10mg"`
	Immunizations  string `json:"immunizations" example:"influenza 2025"`

	InsuranceDetails string `json:"insurance_details" example:"ACME Health #998877"`
	PaymentInfo      string `json:"payment_info" example:"card on file"`
	BankAccount      string `json:"bank_account" example:"****4321"`
}

// CreatePatientResponse : ответ при создании карты; код доступа уходит
// на email создателя
type CreatePatientResponse struct {
	Data struct {
		UUID    string `json:"uuid" example:"123e4567-e89b-12d3-a456-426614174000"`
		OTPSent bool   `json:"otp_sent" example:"true"`
	} `json:"data"`
}

// GetPatientResponse : карта с временной ссылкой на PDF-сводку
type GetPatientResponse struct {
	Data struct {
		Patient *model.Patient `json:"patient"`
		GetURL  string         `json:"get_url" example:"https://s3.example.com/presigned-get"`
	} `json:"data"`
}

// ListPatientsResponse : список карт сотрудника
type ListPatientsResponse struct {
	Data struct {
		Patients   []model.Patient `json:"patients"`
		NextCursor string          `json:"next_cursor,omitempty"`
	} `json:"data"`
}

// AccessPatientResponse : результат успешного погашения кода
type AccessPatientResponse struct {
	Data struct {
		FullName    string `json:"full_name" example:"John Doe"`
		DateOfBirth string `json:"date_of_birth" example:"1984-03-12"`
		GetURL      string `json:"get_url" example:"https://s3.example.com/presigned-get"`
	} `json:"data"`
}
