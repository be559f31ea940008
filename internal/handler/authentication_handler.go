package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"secure-health-server/internal/model/requestresponse"
	"secure-health-server/internal/ports"
	"secure-health-server/internal/security"
	"secure-health-server/internal/service"

	"github.com/go-chi/chi/v5"
)

type AuthenticationHandler struct {
	ports.AuthenticationService
	ports.JWTServiceInterface
	secretKey []byte
}

func NewAuthenticationHandler(
	authenticationService *service.AuthenticationService,
	jwtServiceInterface ports.JWTServiceInterface,
	secretKey []byte,
) *AuthenticationHandler {
	return &AuthenticationHandler{
		authenticationService,
		jwtServiceInterface,
		secretKey,
	}
}

// RequestOTP godoc
// @Summary Запрос одноразового кода входа
// @Description Отправляет шестизначный код входа на зарегистрированный email учётной записи. Повторный запрос затирает предыдущий код.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.RequestOTPRequest true "Тело запроса"
// @Success 200 {object} requestresponse.RequestOTPResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 502 {object} requestresponse.ErrorResponse "Письмо не отправлено"
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/auth/request-otp [post]
func (h *AuthenticationHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req requestresponse.RequestOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	if req.Username == "" {
		sendErrorResponse(w, 400, "username обязателен")
		return
	}

	if err := h.AuthenticationService.RequestLoginCode(r.Context(), req.Username); err != nil {
		log.Println(err)
		switch {
		case errors.Is(err, service.ErrNotFound):
			sendErrorResponse(w, 404, "пользователь не найден")
		case errors.Is(err, service.ErrDeliveryFailed):
			sendErrorResponse(w, 502, "не удалось отправить письмо")
		default:
			sendErrorResponse(w, 500, "внутренняя ошибка сервера")
		}
		return
	}

	resp := requestresponse.RequestOTPResponse{}
	resp.Response.Sent = true

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}

// Login godoc
// @Summary Вход по одноразовому коду
// @Description Обменивает username и код из письма на пару access/refresh токенов. Код гасится при успешном входе и повторно не принимается.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.LoginRequest true "Тело запроса"
// @Success 200 {object} requestresponse.LoginResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse "Неверный код входа"
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/auth [post]
func (h *AuthenticationHandler) Login(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ctx := r.Context()

	var req requestresponse.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	if req.Username == "" || req.OTP == "" {
		sendErrorResponse(w, 400, "username и otp обязательны")
		return
	}

	tokens, err := h.AuthenticationService.Login(ctx, req.Username, req.OTP, r.UserAgent(), r.RemoteAddr)
	if err != nil {
		log.Println(err)
		switch {
		case errors.Is(err, service.ErrInvalidCode):
			sendErrorResponse(w, 401, "неверный код входа")
		default:
			sendErrorResponse(w, 500, "внутренняя ошибка сервера")
		}
		return
	}

	resp := requestresponse.LoginResponse{}
	resp.Response.AccessToken = tokens.AccessToken
	resp.Response.RefreshToken = tokens.RefreshToken

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}

// GetCurrentUsersUUID godoc
// @Summary Получение UUID и роли текущего пользователя
// @Description Возвращает UUID и роль пользователя, который авторизован в системе
// @Tags Authentication
// @Produce json
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.CurrentUserResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/auth/me [get]
func (h *AuthenticationHandler) GetCurrentUsersUUID(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()
	claims, ok := ctx.Value(security.UserContextKey).(*security.Claims)
	if ok == false || claims == nil {
		sendErrorResponse(w, 401, "не авторизован")
		return
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	resp := requestresponse.CurrentUserResponse{}
	resp.Response.UserUUID = claims.UserUUID
	resp.Response.Role = claims.Role

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}

// GetCurrentUsersUUIDHead godoc
// @Summary Проверка авторизации текущего пользователя
// @Tags Authentication
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200
// @Failure 401 {object} requestresponse.ErrorResponse
// @Router /api/auth/me [head]
func (h *AuthenticationHandler) GetCurrentUsersUUIDHead(w http.ResponseWriter, r *http.Request) {
	h.GetCurrentUsersUUID(w, r)
}

// RefreshToken godoc
// @Summary Обновление токенов
// @Description Обновляет пару токенов (access и refresh) по действующему access и refresh токену
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.RefreshTokenRequest true "Тело запроса"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.RefreshTokenResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/auth/refresh [post]
func (h *AuthenticationHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ctx := r.Context()

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		sendErrorResponse(w, 401, "пустой или неверный заголовок Authorization")
		return
	}

	accessToken := strings.TrimPrefix(authHeader, "Bearer ")

	var req requestresponse.RefreshTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	tokensPair, err := h.AuthenticationService.RefreshToken(ctx, r.UserAgent(), r.RemoteAddr, accessToken, req.RefreshToken)
	if err != nil {
		log.Println(err)
		switch {
		case strings.Contains(err.Error(), "не удалось провалидировать токен"),
			strings.Contains(err.Error(), "не удалось найти рефреш токен"),
			strings.Contains(err.Error(), "невалидный токен"):
			sendErrorResponse(w, 401, "не удалось обновить токены")
		default:
			sendErrorResponse(w, 500, "внутренняя ошибка сервера")
		}
		return
	}

	resp := requestresponse.RefreshTokenResponse{}
	resp.Response.AccessToken = tokensPair.AccessToken
	resp.Response.RefreshToken = tokensPair.RefreshToken

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}

// Logout godoc
// @Summary Завершение авторизованной сессии
// @Description Инвалидирует refresh-токен и завершает сессию пользователя по access-токену, переданному в URL.
// @Tags Authentication
// @Produce json
// @Param token path string true "Access-токен пользователя (JWT)"
// @Success 200 {object} requestresponse.LogoutResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/auth/{token} [delete]
func (h *AuthenticationHandler) Logout(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ctx := r.Context()

	accessToken := chi.URLParam(r, "token")
	if accessToken == "" {
		sendErrorResponse(w, http.StatusBadRequest, "токен не указан")
		return
	}

	claims, err := h.JWTServiceInterface.ValidateJWT(accessToken, h.secretKey)
	if err != nil {
		sendErrorResponse(w, http.StatusUnauthorized, fmt.Sprintf("невалидный токен: %v", err))
		return
	}

	if err := h.AuthenticationService.Logout(ctx, claims.RefreshTokenUUID); err != nil {
		log.Println(err)
		sendErrorResponse(w, http.StatusInternalServerError, "не удалось завершить сессию")
		return
	}

	resp := requestresponse.LogoutResponse{}
	resp.Response.LoggedOut = true

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}
