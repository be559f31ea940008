package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"secure-health-server/internal/model"
	"secure-health-server/internal/model/requestresponse"
	"secure-health-server/internal/ports"
	"secure-health-server/internal/security"
	"secure-health-server/internal/service"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	ports.UserService
}

func NewUserHandler(userService ports.UserService) *UserHandler {
	return &UserHandler{userService}
}

// RegisterUser godoc
// @Summary Регистрация новой учётной записи
// @Description Создаёт учётную запись с ролью admin, doctor или management. Пароль генерируется сервером, первый код входа уходит письмом на указанный email.
// @Tags Users
// @Accept json
// @Produce json
// @Param body body requestresponse.RegisterRequest true "Тело запроса"
// @Success 200 {object} requestresponse.RegisterResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 409 {object} requestresponse.ErrorResponse "Учётная запись уже существует"
// @Failure 502 {object} requestresponse.ErrorResponse "Письмо не отправлено, учётная запись создана"
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/register [post]
func (h *UserHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req requestresponse.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	user, err := h.UserService.Register(r.Context(), req.Username, req.Email, req.Role)
	if err != nil {
		log.Println(err)
		switch {
		case errors.Is(err, service.ErrInvalidEmail), errors.Is(err, service.ErrInvalidRole):
			sendErrorResponse(w, 400, "bad request")
			return
		case errors.Is(err, service.ErrAlreadyExists):
			sendErrorResponse(w, 409, "учётная запись уже существует")
			return
		case errors.Is(err, service.ErrDeliveryFailed):
			// учётная запись создана, но письмо с кодом не ушло
			resp := requestresponse.RegisterResponse{
				Response: requestresponse.RegisterData{
					UUID:     user.UUID,
					Username: user.Username,
					Role:     user.Role,
					OTPSent:  false,
				},
			}
			w.WriteHeader(502)
			json.NewEncoder(w).Encode(resp)
			return
		default:
			sendErrorResponse(w, 500, "внутренняя ошибка сервера")
			return
		}
	}

	resp := requestresponse.RegisterResponse{
		Response: requestresponse.RegisterData{
			UUID:     user.UUID,
			Username: user.Username,
			Role:     user.Role,
			OTPSent:  true,
		},
	}

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}

// GetUser godoc
// @Summary Получение информации об учётной записи
// @Description Возвращает данные учётной записи. Доступно самому пользователю и администратору.
// @Tags Users
// @Produce json
// @Param uuid path string true "UUID пользователя"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.UserResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/users/{uuid} [get]
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	targetUUID := chi.URLParam(r, "uuid")
	if restrictToOwner(w, r, targetUUID) == false {
		return
	}

	user, err := h.UserService.GetUser(r.Context(), targetUUID)
	if err != nil {
		log.Println(err)
		switch {
		case errors.Is(err, service.ErrNotFound):
			sendErrorResponse(w, 404, "пользователь не найден")
		default:
			sendErrorResponse(w, 500, "внутренняя ошибка сервера")
		}
		return
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	resp := requestresponse.UserResponse{}
	resp.Data.UUID = user.UUID
	resp.Data.Username = user.Username
	resp.Data.Email = user.Email
	resp.Data.Role = user.Role

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}

// DeleteUser godoc
// @Summary Удаление учётной записи
// @Description Удаляет учётную запись. Доступно только администратору; собственную запись удалить нельзя.
// @Tags Users
// @Produce json
// @Param uuid path string true "UUID пользователя"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 204 "Учётная запись удалена"
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/users/{uuid} [delete]
// @Security BearerAuth
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	targetUUID := chi.URLParam(r, "uuid")

	if err := h.UserService.DeleteUser(r.Context(), targetUUID); err != nil {
		log.Println(err)
		switch {
		case errors.Is(err, service.ErrForbidden):
			sendErrorResponse(w, 403, "доступ запрещён")
		case errors.Is(err, service.ErrNotFound):
			sendErrorResponse(w, 404, "пользователь не найден")
		default:
			sendErrorResponse(w, 500, "внутренняя ошибка сервера")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListUsers godoc
// @Summary Получение списка учётных записей
// @Description Возвращает список учётных записей с постраничной навигацией (cursor-based) и необязательным фильтром по роли. Доступно только администратору.
// @Tags Users
// @Produce json
// @Param role query string false "Фильтр по роли" Enums(admin, doctor, management)
// @Param cursor query string false "Курсор для пагинации"
// @Param limit query int false "Количество пользователей в списке" default(50) minimum(1) maximum(100)
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.ListUsersResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/users [get]
// @Security BearerAuth
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	role := r.URL.Query().Get("role")
	cursor := r.URL.Query().Get("cursor")
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			if l > 100 {
				limit = 100
			} else {
				limit = l
			}
		}
	}

	users, nextCursor, err := h.UserService.ListUsers(r.Context(), role, cursor, limit)
	if err != nil {
		log.Println(err)
		switch {
		case errors.Is(err, service.ErrForbidden):
			sendErrorResponse(w, 403, "доступ запрещён")
		default:
			sendErrorResponse(w, 500, "внутренняя ошибка сервера")
		}
		return
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	resp := requestresponse.ListUsersResponse{}
	resp.Data.Users = users
	resp.Data.NextCursor = nextCursor

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}

// RoleCounts godoc
// @Summary Счётчики учётных записей по ролям
// @Description Возвращает количество администраторов, врачей и сотрудников management для панели администратора.
// @Tags Users
// @Produce json
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.RoleCountsResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/users/counts [get]
// @Security BearerAuth
func (h *UserHandler) RoleCounts(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	counts, err := h.UserService.RoleCounts(r.Context())
	if err != nil {
		log.Println(err)
		switch {
		case errors.Is(err, service.ErrForbidden):
			sendErrorResponse(w, 403, "доступ запрещён")
		default:
			sendErrorResponse(w, 500, "внутренняя ошибка сервера")
		}
		return
	}

	resp := requestresponse.RoleCountsResponse{}
	resp.Data.Admins = counts[model.RoleAdmin]
	resp.Data.Doctors = counts[model.RoleDoctor]
	resp.Data.Management = counts[model.RoleManagement]

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}

// decodeJSON обрабатывает декодирование JSON и возвращает ответ об ошибке, если декодирование не удалось.
func decodeJSON(w http.ResponseWriter, r *http.Request, target interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(400)
		json.NewEncoder(w).Encode(requestresponse.ErrorResponse{
			Error: requestresponse.ErrorDetail{
				Code: 400,
				Text: "invalid request body",
			},
		})
		return err
	}
	return nil
}

// restrictToOwner проверяет, имеет ли пользователь право доступа к ресурсу
func restrictToOwner(w http.ResponseWriter, r *http.Request, targetUUID string) bool {
	claims, ok := r.Context().Value(security.UserContextKey).(*security.Claims)
	if ok == false || claims == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(requestresponse.ErrorResponse{
			Error: requestresponse.ErrorDetail{
				Code: http.StatusUnauthorized,
				Text: "unauthorized",
			},
		})
		return false
	}

	if claims.IsAdmin == false && claims.UserUUID != targetUUID {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(requestresponse.ErrorResponse{
			Error: requestresponse.ErrorDetail{
				Code: http.StatusForbidden,
				Text: "forbidden",
			},
		})
		return false
	}

	return true
}

// sendErrorResponse отправляет ответ об ошибке JSON с указанным кодом статуса и сообщением
func sendErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(requestresponse.ErrorResponse{
		Error: requestresponse.ErrorDetail{
			Code: statusCode,
			Text: message,
		},
	})
}
