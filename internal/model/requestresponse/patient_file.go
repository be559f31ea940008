package requestresponse

import "secure-health-server/internal/model"

// CreateFileRequest : метаданные файла пациента
type CreateFileRequest struct {
	PatientName string `json:"patient_name" example:"John Doe"`
	PatientID   string `json:"patient_id" example:"P-10231"`
	Disease     string `json:"disease" example:"hypertension"`
	Filename    string `json:"filename" example:"blood_test.pdf"`
	MimeType    string `json:"mime_type" example:"application/pdf"`
	SizeBytes   int64  `json:"size_bytes" example:"204800"`
}

// CreateFileResponse : ответ при создании файла; файл загружается по PUT URL
type CreateFileResponse struct {
	Data struct {
		UUID   string `json:"uuid" example:"123e4567-e89b-12d3-a456-426614174000"`
		PutURL string `json:"put_url" example:"https://s3.example.com/presigned-put"`
	} `json:"data"`
}

// GetFileResponse : файл с временной ссылкой на скачивание
type GetFileResponse struct {
	Data struct {
		File   *model.PatientFile `json:"file"`
		GetURL string             `json:"get_url" example:"https://s3.example.com/presigned-get"`
	} `json:"data"`
}

// ListFilesResponse : список файлов врача
type ListFilesResponse struct {
	Data struct {
		Files      []model.PatientFile `json:"files"`
		NextCursor string              `json:"next_cursor,omitempty"`
	} `json:"data"`
}

// ShareRequest : выдача одноразового кода доступа на email получателя
type ShareRequest struct {
	Email string `json:"email" example:"colleague@clinic.org"`
}

// ShareResponse : ответ на выдачу кода; сам код уходит только письмом
type ShareResponse struct {
	Response struct {
		Sent  bool   `json:"sent" example:"true"`
		Email string `json:"email" example:"colleague@clinic.org"`
	} `json:"response"`
}

// AccessRequest : погашение одноразового кода доступа
type AccessRequest struct {
	Email string `json:"email" example:"colleague@clinic.org"`
	OTP   string `json:"otp" example:"042137"`
}

// AccessFileResponse : результат успешного погашения кода
type AccessFileResponse struct {
	Data struct {
		PatientName string `json:"patient_name" example:"John Doe"`
		Filename    string `json:"filename" example:"blood_test.pdf"`
		GetURL      string `json:"get_url" example:"https://s3.example.com/presigned-get"`
	} `json:"data"`
}
