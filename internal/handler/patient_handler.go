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

type PatientHandler struct {
	ports.PatientService
	ports.AccessService
}

func NewPatientHandler(patientService ports.PatientService, accessService ports.AccessService) *PatientHandler {
	return &PatientHandler{patientService, accessService}
}

// CreatePatient godoc
// @Summary Создание карты пациента
// @Description Создаёт полную медицинскую карту, генерирует PDF-сводку, кладёт её в хранилище и отправляет создателю письмо с кодом доступа. Доступно только сотрудникам management.
// @Tags Patients
// @Accept json
// @Produce json
// @Param body body requestresponse.CreatePatientRequest true "Данные пациента"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.CreatePatientResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 502 {object} requestresponse.ErrorResponse "Письмо не отправлено, карта создана"
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/patients [post]
// @Security BearerAuth
func (h *PatientHandler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req requestresponse.CreatePatientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	patient := &model.Patient{
		FullName:    req.FullName,
		DateOfBirth: req.DateOfBirth,
		Gender:      req.Gender,
		NationalID:  req.NationalID,
		Address:     req.Address,
		Phone:       req.Phone,
		Email:       req.Email,

		MedicalHistory: req.MedicalHistory,
		Diagnosis:      req.Diagnosis,
		LabResults:     req.LabResults,
		ImagingReports: req.ImagingReports,
		Prescriptions:  req.Prescriptions,
		Immunizations:  req.Immunizations,

		InsuranceDetails: req.InsuranceDetails,
		PaymentInfo:      req.PaymentInfo,
		BankAccount:      req.BankAccount,
	}

	created, err := h.PatientService.CreatePatient(r.Context(), patient)
	if err != nil {
		log.Println(err)
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			sendErrorResponse(w, 400, "некорректный email")
			return
		case errors.Is(err, service.ErrForbidden):
			sendErrorResponse(w, 403, "доступ запрещён")
			return
		case errors.Is(err, service.ErrDeliveryFailed):
			// карта создана, но письмо с кодом не ушло
			resp := requestresponse.CreatePatientResponse{}
			resp.Data.UUID = created.UUID
			resp.Data.OTPSent = false
			w.WriteHeader(502)
			json.NewEncoder(w).Encode(resp)
			return
		default:
			sendErrorResponse(w, 500, "внутренняя ошибка сервера")
			return
		}
	}

	resp := requestresponse.CreatePatientResponse{}
	resp.Data.UUID = created.UUID
	resp.Data.OTPSent = true

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}

// GetPatient godoc
// @Summary Получение карты пациента
// @Description Возвращает карту и pre-signed GET URL на PDF-сводку. Доступно только создавшему сотруднику.
// @Tags Patients
// @Produce json
// @Param patient_uuid path string true "UUID карты"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.GetPatientResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/patients/{patient_uuid} [get]
// @Security BearerAuth
func (h *PatientHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	patientUUID := chi.URLParam(r, "patient_uuid")

	result, err := h.PatientService.GetPatient(r.Context(), patientUUID)
	if err != nil {
		log.Println(err)
		switch {
		case errors.Is(err, service.ErrNotOwner):
			sendErrorResponse(w, 403, "доступ запрещён")
		case errors.Is(err, service.ErrNotFound):
			sendErrorResponse(w, 404, "карта не найдена")
		default:
			sendErrorResponse(w, 500, "внутренняя ошибка сервера")
		}
		return
	}

	resp := requestresponse.GetPatientResponse{}
	resp.Data.Patient = result.Patient
	resp.Data.GetURL = result.GetURL

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}

// ListPatients godoc
// @Summary Список карт текущего сотрудника
// @Description Возвращает карты, созданные текущим сотрудником, с cursor-based пагинацией.
// @Tags Patients
// @Produce json
// @Param cursor query string false "Курсор для пагинации"
// @Param limit query int false "Количество карт в списке" default(50) minimum(1) maximum(100)
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.ListPatientsResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/patients [get]
// @Security BearerAuth
func (h *PatientHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
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

	patients, nextCursor, err := h.PatientService.ListPatients(r.Context(), cursor, limit)
	if err != nil {
		log.Println(err)
		sendErrorResponse(w, 500, "внутренняя ошибка сервера")
		return
	}

	resp := requestresponse.ListPatientsResponse{}
	resp.Data.Patients = patients
	resp.Data.NextCursor = nextCursor

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}

// DeletePatient godoc
// @Summary Удаление карты пациента
// @Description Удаляет карту из БД и её PDF из хранилища. Доступно только создавшему сотруднику.
// @Tags Patients
// @Produce json
// @Param patient_uuid path string true "UUID карты"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 204 "Карта удалена"
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/patients/{patient_uuid} [delete]
// @Security BearerAuth
func (h *PatientHandler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	patientUUID := chi.URLParam(r, "patient_uuid")

	if err := h.PatientService.DeletePatient(r.Context(), patientUUID); err != nil {
		log.Println(err)
		switch {
		case errors.Is(err, service.ErrNotFound):
			sendErrorResponse(w, 404, "карта не найдена")
		default:
			sendErrorResponse(w, 500, "внутренняя ошибка сервера")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SharePatient godoc
// @Summary Выдача одноразового кода доступа к карте
// @Description Привязывает шестизначный код к email получателя и отправляет код письмом. Повторная выдача затирает предыдущий код. Доступно только создавшему сотруднику.
// @Tags Patients
// @Accept json
// @Produce json
// @Param patient_uuid path string true "UUID карты"
// @Param body body requestresponse.ShareRequest true "Email получателя"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.ShareResponse
// @Failure 400 {object} requestresponse.ErrorResponse "Некорректный email"
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 502 {object} requestresponse.ErrorResponse "Письмо не отправлено, код остаётся выданным"
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/patients/{patient_uuid}/share [post]
// @Security BearerAuth
func (h *PatientHandler) SharePatient(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	patientUUID := chi.URLParam(r, "patient_uuid")

	var req requestresponse.ShareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	_, err := h.AccessService.IssuePatientGrant(r.Context(), patientUUID, req.Email)
	if err != nil {
		log.Println(err)
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			sendErrorResponse(w, 400, "некорректный email")
		case errors.Is(err, service.ErrNotOwner):
			sendErrorResponse(w, 403, "доступ запрещён")
		case errors.Is(err, service.ErrNotFound):
			sendErrorResponse(w, 404, "карта не найдена")
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

// AccessPatient godoc
// @Summary Доступ к карте пациента по одноразовому коду
// @Description Гасит код доступа и возвращает pre-signed GET URL на PDF-сводку. Кроме привязанного email принимается email создателя карты. Авторизация не требуется, код принимается ровно один раз.
// @Tags PublicAccess
// @Accept json
// @Produce json
// @Param patient_uuid path string true "UUID карты"
// @Param body body requestresponse.AccessRequest true "Email и код из письма"
// @Success 200 {object} requestresponse.AccessPatientResponse
// @Failure 403 {object} requestresponse.ErrorResponse "Неверный email или код"
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/public/patients/{patient_uuid}/access [post]
func (h *PatientHandler) AccessPatient(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	patientUUID := chi.URLParam(r, "patient_uuid")

	var req requestresponse.AccessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	result, err := h.AccessService.RedeemPatientGrant(r.Context(), patientUUID, req.Email, req.OTP)
	if err != nil {
		log.Println(err)
		switch {
		case errors.Is(err, service.ErrAccessDenied):
			sendErrorResponse(w, 403, "неверный email или код доступа")
		case errors.Is(err, service.ErrNotFound):
			sendErrorResponse(w, 404, "карта не найдена")
		default:
			sendErrorResponse(w, 500, "внутренняя ошибка сервера")
		}
		return
	}

	resp := requestresponse.AccessPatientResponse{}
	resp.Data.FullName = result.Patient.FullName
	resp.Data.DateOfBirth = result.Patient.DateOfBirth
	resp.Data.GetURL = result.GetURL

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}
