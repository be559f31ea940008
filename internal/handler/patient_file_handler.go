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
	"secure-health-server/internal/service"

	"github.com/go-chi/chi/v5"
)

type PatientFileHandler struct {
	ports.PatientFileService
	ports.AccessService
}

func NewPatientFileHandler(fileService ports.PatientFileService, accessService ports.AccessService) *PatientFileHandler {
	return &PatientFileHandler{fileService, accessService}
}

// CreateFile godoc
// @Summary Регистрация файла пациента
// @Description Создаёт запись о файле пациента и возвращает pre-signed PUT URL, по которому врач загружает сам файл в хранилище. Доступно только врачам.
// @Tags PatientFiles
// @Accept json
// @Produce json
// @Param body body requestresponse.CreateFileRequest true "Метаданные файла"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.CreateFileResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/files [post]
// @Security BearerAuth
func (h *PatientFileHandler) CreateFile(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req requestresponse.CreateFileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	file := &model.PatientFile{
		PatientName: req.PatientName,
		PatientID:   req.PatientID,
		Disease:     req.Disease,
		Filename:    req.Filename,
		MimeType:    req.MimeType,
		SizeBytes:   req.SizeBytes,
	}

	putURL, err := h.PatientFileService.CreateFile(r.Context(), file)
	if err != nil {
		log.Println(err)
		switch {
		case errors.Is(err, service.ErrForbidden):
			sendErrorResponse(w, 403, "доступ запрещён")
		case errors.Is(err, service.ErrInvalidEmail):
			sendErrorResponse(w, 400, "bad request")
		default:
			sendErrorResponse(w, 500, "внутренняя ошибка сервера")
		}
		return
	}

	resp := requestresponse.CreateFileResponse{}
	resp.Data.UUID = file.UUID
	resp.Data.PutURL = putURL

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}

// GetFile godoc
// @Summary Получение файла пациента
// @Description Возвращает метаданные файла и pre-signed GET URL. Доступно только загрузившему врачу.
// @Tags PatientFiles
// @Produce json
// @Param file_uuid path string true "UUID файла"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.GetFileResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/files/{file_uuid} [get]
// @Security BearerAuth
func (h *PatientFileHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	fileUUID := chi.URLParam(r, "file_uuid")

	result, err := h.PatientFileService.GetFile(r.Context(), fileUUID)
	if err != nil {
		log.Println(err)
		switch {
		case errors.Is(err, service.ErrNotOwner):
			sendErrorResponse(w, 403, "доступ запрещён")
		case errors.Is(err, service.ErrNotFound):
			sendErrorResponse(w, 404, "файл не найден")
		default:
			sendErrorResponse(w, 500, "внутренняя ошибка сервера")
		}
		return
	}

	resp := requestresponse.GetFileResponse{}
	resp.Data.File = result.File
	resp.Data.GetURL = result.GetURL

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}

// ListFiles godoc
// @Summary Список файлов текущего врача
// @Description Возвращает файлы, загруженные текущим врачом, с cursor-based пагинацией.
// @Tags PatientFiles
// @Produce json
// @Param cursor query string false "Курсор для пагинации"
// @Param limit query int false "Количество файлов в списке" default(50) minimum(1) maximum(100)
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.ListFilesResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/files [get]
// @Security BearerAuth
func (h *PatientFileHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

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

	files, nextCursor, err := h.PatientFileService.ListFiles(r.Context(), cursor, limit)
	if err != nil {
		log.Println(err)
		sendErrorResponse(w, 500, "внутренняя ошибка сервера")
		return
	}

	resp := requestresponse.ListFilesResponse{}
	resp.Data.Files = files
	resp.Data.NextCursor = nextCursor

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}

// DeleteFile godoc
// @Summary Удаление файла пациента
// @Description Удаляет файл из БД и из хранилища. Доступно только загрузившему врачу.
// @Tags PatientFiles
// @Produce json
// @Param file_uuid path string true "UUID файла"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 204 "Файл удалён"
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/files/{file_uuid} [delete]
// @Security BearerAuth
func (h *PatientFileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	fileUUID := chi.URLParam(r, "file_uuid")

	if err := h.PatientFileService.DeleteFile(r.Context(), fileUUID); err != nil {
		log.Println(err)
		switch {
		case errors.Is(err, service.ErrNotFound):
			sendErrorResponse(w, 404, "файл не найден")
		default:
			sendErrorResponse(w, 500, "внутренняя ошибка сервера")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ShareFile godoc
// @Summary Выдача одноразового кода доступа к файлу
// @Description Привязывает шестизначный код к email получателя и отправляет код письмом. Повторная выдача затирает предыдущий код. Доступно только загрузившему врачу.
// @Tags PatientFiles
// @Accept json
// @Produce json
// @Param file_uuid path string true "UUID файла"
// @Param body body requestresponse.ShareRequest true "Email получателя"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.ShareResponse
// @Failure 400 {object} requestresponse.ErrorResponse "Некорректный email"
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 502 {object} requestresponse.ErrorResponse "Письмо не отправлено, код остаётся выданным"
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/files/{file_uuid}/share [post]
// @Security BearerAuth
func (h *PatientFileHandler) ShareFile(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	fileUUID := chi.URLParam(r, "file_uuid")

	var req requestresponse.ShareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	_, err := h.AccessService.IssueFileGrant(r.Context(), fileUUID, req.Email)
	if err != nil {
		log.Println(err)
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			sendErrorResponse(w, 400, "некорректный email")
		case errors.Is(err, service.ErrNotOwner):
			sendErrorResponse(w, 403, "доступ запрещён")
		case errors.Is(err, service.ErrNotFound):
			sendErrorResponse(w, 404, "файл не найден")
		case errors.Is(err, service.ErrDeliveryFailed):
			sendErrorResponse(w, 502, "не удалось отправить письмо")
		default:
			sendErrorResponse(w, 500, "внутренняя ошибка сервера")
		}
		return
	}

	resp := requestresponse.ShareResponse{}
	resp.Response.Sent = true
	resp.Response.Email = req.Email

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}

// AccessFile godoc
// @Summary Доступ к файлу по одноразовому коду
// @Description Гасит код доступа и возвращает pre-signed GET URL на файл. Авторизация не требуется: доступом управляет сама пара email+код. Код принимается ровно один раз.
// @Tags PublicAccess
// @Accept json
// @Produce json
// @Param file_uuid path string true "UUID файла"
// @Param body body requestresponse.AccessRequest true "Email и код из письма"
// @Success 200 {object} requestresponse.AccessFileResponse
// @Failure 403 {object} requestresponse.ErrorResponse "Неверный email или код"
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/public/files/{file_uuid}/access [post]
func (h *PatientFileHandler) AccessFile(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	fileUUID := chi.URLParam(r, "file_uuid")

	var req requestresponse.AccessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	result, err := h.AccessService.RedeemFileGrant(r.Context(), fileUUID, req.Email, req.OTP)
	if err != nil {
		log.Println(err)
		switch {
		case errors.Is(err, service.ErrAccessDenied):
			sendErrorResponse(w, 403, "неверный email или код доступа")
		case errors.Is(err, service.ErrNotFound):
			sendErrorResponse(w, 404, "файл не найден")
		default:
			sendErrorResponse(w, 500, "внутренняя ошибка сервера")
		}
		return
	}

	resp := requestresponse.AccessFileResponse{}
	resp.Data.PatientName = result.File.PatientName
	resp.Data.Filename = result.File.Filename
	resp.Data.GetURL = result.GetURL

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}
