package requestresponse

import "secure-health-server/internal/model"

// RegisterRequest : тело запроса регистрации
type RegisterRequest struct {
	Username string `json:"username" example:"doctor_smith"`
	Email    string `json:"email" example:"smith@hospital.org"`
	Role     string `json:"role" example:"doctor" enums:"admin,doctor,management"`
}

// RegisterResponse : успешный ответ; код входа уходит письмом
type RegisterResponse struct {
	Response RegisterData `json:"response"`
}

type RegisterData struct {
	UUID     string `json:"uuid" example:"123e4567-e89b-12d3-a456-426614174000"`
	Username string `json:"username" example:"doctor_smith"`
	Role     string `json:"role" example:"doctor"`
	OTPSent  bool   `json:"otp_sent" example:"true"`
}

// ErrorDetail : детальная информация об ошибке
type ErrorDetail struct {
	Code int    `json:"code" example:"400"`
	Text string `json:"text" example:"for example: invalid email or code"`
}

// ErrorResponse : стандартная структура ошибки
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// UserResponse : успешный ответ с данными пользователя
type UserResponse struct {
	Data struct {
		UUID     string `json:"uuid" example:"123e4567-e89b-12d3-a456-426614174000"`
		Username string `json:"username" example:"doctor_smith"`
		Email    string `json:"email" example:"smith@hospital.org"`
		Role     string `json:"role" example:"doctor"`
	} `json:"data"`
}

// ListUsersResponse : успешный ответ
type ListUsersResponse struct {
	Data struct {
		Users      []*model.User `json:"users"`
		NextCursor string        `json:"next_cursor,omitempty"`
	} `json:"data"`
}

// RoleCountsResponse : счётчики учётных записей по ролям для панели администратора
type RoleCountsResponse struct {
	Data struct {
		Admins     int `json:"admins" example:"1"`
		Doctors    int `json:"doctors" example:"12"`
		Management int `json:"management" example:"4"`
	} `json:"data"`
}
