package requestresponse

// RequestOTPRequest : запрос кода входа на зарегистрированный email
type RequestOTPRequest struct {
	Username string `json:"username" example:"doctor_smith"`
}

// RequestOTPResponse : ответ на успешный запрос кода входа
type RequestOTPResponse struct {
	Response struct {
		Sent bool `json:"sent" example:"true"`
	} `json:"response"`
}

// LoginRequest : тело запроса на вход по одноразовому коду
type LoginRequest struct {
	Username string `json:"username" example:"doctor_smith"`
	OTP      string `json:"otp" example:"042137"`
}

// LoginResponse : ответ на успешный вход
type LoginResponse struct {
	Response struct {
		AccessToken  string `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
		RefreshToken string `json:"refresh_token" example:"sfuqwejqjoiu93e29"`
	} `json:"response"`
}

// CurrentUserResponse : информация о текущем пользователе
type CurrentUserResponse struct {
	Response struct {
		UserUUID string `json:"user_uuid" example:"b6a1e1c4-4b1d-4f1e-8b29-1234567890ab"`
		Role     string `json:"role" example:"doctor"`
	} `json:"response"`
}

// RefreshTokenRequest : запрос на обновление пары токенов
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" example:"sfuqwejqjoiu93e29"`
}

// RefreshTokenResponse : ответ на успешный запрос
type RefreshTokenResponse struct {
	Response struct {
		AccessToken  string `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
		RefreshToken string `json:"refresh_token" example:"sfuqwejqjoiu93e29"`
	} `json:"response"`
}

// LogoutResponse : ответ на завершение сессии
type LogoutResponse struct {
	Response struct {
		LoggedOut bool `json:"logged_out" example:"true"`
	} `json:"response"`
}
