package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"secure-health-server/config"
	"secure-health-server/internal/model"
	"secure-health-server/internal/otp"
	"secure-health-server/internal/ports"
	"secure-health-server/internal/security"
	"secure-health-server/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// PatientService : медицинские карты, которые ведут сотрудники management.
// При создании карты сервер сам формирует PDF-сводку, кладёт её в S3 и
// отправляет владельцу код доступа к ней
type PatientService struct {
	patientRepository ports.PatientRepository
	grantRepository   ports.GrantRepository
	cacheRepository   ports.CacheRepository
	userRepository    ports.UserRepository
	storageInterface  ports.S3Storage
	renderer          ports.PDFRenderer
	uploader          *util.S3Uploader
	mailer            ports.Mailer
	generator         *otp.Generator
	validate          *validator.Validate
	ttl               time.Duration
}

func NewPatientService(
	patientRepository ports.PatientRepository,
	grantRepository ports.GrantRepository,
	cacheRepository ports.CacheRepository,
	userRepository ports.UserRepository,
	storageInterface ports.S3Storage,
	renderer ports.PDFRenderer,
	uploader *util.S3Uploader,
	mailer ports.Mailer,
	generator *otp.Generator,
	ttl time.Duration,
) *PatientService {
	return &PatientService{
		patientRepository: patientRepository,
		grantRepository:   grantRepository,
		cacheRepository:   cacheRepository,
		userRepository:    userRepository,
		storageInterface:  storageInterface,
		renderer:          renderer,
		uploader:          uploader,
		mailer:            mailer,
		generator:         generator,
		validate:          validator.New(),
		ttl:               ttl,
	}
}

// CreatePatient : создаёт карту пациента, генерирует PDF-сводку и кладёт её в S3.
// Первый код доступа привязывается к email создателя и уходит ему письмом.
// Карта остаётся созданной и при ошибке доставки письма
func (s *PatientService) CreatePatient(ctx context.Context, patient *model.Patient) (*model.Patient, error) {
	db, ok := ctx.Value("db").(*config.Database)
	if !ok {
		return nil, fmt.Errorf("[PatientService] database connection не найден в context")
	}

	claims, err := security.GetClaimsFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("[PatientService] пользователь не авторизован")
	}
	if claims.Role != model.RoleManagement {
		return nil, fmt.Errorf("[PatientService] %w", ErrForbidden)
	}

	if patient.FullName == "" || patient.DateOfBirth == "" {
		return nil, fmt.Errorf("[PatientService] не заполнены обязательные поля")
	}
	if patient.Email != "" {
		if err := s.validate.Var(patient.Email, "email"); err != nil {
			return nil, fmt.Errorf("[PatientService] %w: %s", ErrInvalidEmail, patient.Email)
		}
	}

	patient.UUID = uuid.New().String()
	patient.UploadedBy = claims.UserUUID
	patient.PDFPath = fmt.Sprintf("patients/%s/%s_medical_record.pdf",
		patient.UUID, strings.ReplaceAll(patient.FullName, " ", "_"))

	pdfData, err := s.renderer.Render(patient)
	if err != nil {
		return nil, util.LogError("[PatientService] не удалось сформировать PDF", err)
	}

	putURL, err := s.storageInterface.GeneratePresignedPutURL(ctx, patient.PDFPath, s.ttl)
	if err != nil {
		return nil, util.LogError("[PatientService] не удалось сгенерировать pre-signed PUT URL", err)
	}
	if err := s.uploader.UploadBytes(ctx, putURL, pdfData, "application/pdf"); err != nil {
		return nil, util.LogError("[PatientService] не удалось загрузить PDF в S3", err)
	}

	owner, err := s.userRepository.FindByUUID(ctx, db, claims.UserUUID)
	if err != nil {
		return nil, util.LogError("[PatientService] не удалось найти создателя карты", err)
	}

	code, err := s.generator.NewCode()
	if err != nil {
		return nil, util.LogError("[PatientService] не удалось сгенерировать код", err)
	}

	exec, rollback, commit, err := s.patientRepository.BeginTX(ctx)
	if err != nil {
		return nil, util.LogError("[PatientService] не удалось начать транзакцию", err)
	}
	defer rollback()

	if err := s.patientRepository.Create(ctx, exec, patient); err != nil {
		return nil, util.LogError("[PatientService] не удалось сохранить карту в БД", err)
	}

	if err := s.grantRepository.SetPatientGrant(ctx, exec, patient.UUID, code, owner.Email); err != nil {
		return nil, util.LogError("[PatientService] не удалось записать код доступа", err)
	}

	if err := commit(); err != nil {
		return nil, util.LogError("[PatientService] не удалось закоммитить транзакцию", err)
	}

	log.Printf("[PatientService] карта пациента %s создана, PDF загружен", patient.UUID)

	subject, text, html := patientCreatedMail(owner.Username, patient, code)
	if err := s.mailer.Send(ctx, owner.Email, subject, text, html); err != nil {
		log.Printf("[PatientService] письмо о создании карты не отправлено: %v", err)
		return patient, fmt.Errorf("[PatientService] %w", ErrDeliveryFailed)
	}

	return patient, nil
}

// GetPatient : возвращает карту вместе с pre-signed GET URL на PDF-сводку
func (s *PatientService) GetPatient(ctx context.Context, patientUUID string) (*model.PatientResult, error) {
	db, ok := ctx.Value("db").(*config.Database)
	if !ok {
		return nil, fmt.Errorf("[PatientService] database connection не найден в context")
	}

	claims, err := security.GetClaimsFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("[PatientService] пользователь не авторизован")
	}

	patient, err := s.cacheRepository.GetPatient(ctx, patientUUID)
	if err != nil {
		log.Printf("[PatientService] ошибка кэширования: %v", err)
	}

	if patient == nil {
		patient, err = s.patientRepository.GetByUUID(ctx, db, patientUUID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("[PatientService] %w", ErrNotFound)
			}
			return nil, util.LogError("[PatientService] не удалось получить карту", err)
		}

		if err := s.cacheRepository.SetPatient(ctx, patient); err != nil {
			log.Printf("[PatientService] ошибка кэширования карты: %v", err)
		} else {
			log.Printf("[PatientService] карта %s взята из БД и успешно кэширована Redis", patient.UUID)
		}
	} else {
		log.Printf("[PatientService] карта %s взята из кэша Redis", patient.UUID)
	}

	if patient.UploadedBy != claims.UserUUID {
		return nil, fmt.Errorf("[PatientService] %w", ErrNotOwner)
	}

	getURL, err := s.storageInterface.GeneratePresignedGetURL(ctx, patient.PDFPath, s.ttl)
	if err != nil {
		return nil, util.LogError("[PatientService] не удалось сгенерировать pre-signed GET URL", err)
	}

	return &model.PatientResult{Patient: patient, GetURL: getURL}, nil
}

// ListPatients : список карт, созданных текущим сотрудником
func (s *PatientService) ListPatients(ctx context.Context, cursor string, limit int) ([]model.Patient, string, error) {
	db, ok := ctx.Value("db").(*config.Database)
	if !ok {
		return nil, "", fmt.Errorf("[PatientService] database connection не найден в context")
	}

	claims, err := security.GetClaimsFromContext(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("[PatientService] пользователь не авторизован")
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	patients, nextCursor, err := s.patientRepository.ListByUploader(ctx, db, claims.UserUUID, cursor, limit)
	if err != nil {
		return nil, "", util.LogError("[PatientService] не удалось получить список карт", err)
	}

	return patients, nextCursor, nil
}

// DeletePatient : удаляет карту из БД (мягко) и её PDF из S3
func (s *PatientService) DeletePatient(ctx context.Context, patientUUID string) error {
	claims, err := security.GetClaimsFromContext(ctx)
	if err != nil {
		return fmt.Errorf("[PatientService] пользователь не авторизован")
	}

	exec, rollback, commit, err := s.patientRepository.BeginTX(ctx)
	if err != nil {
		return util.LogError("[PatientService] не удалось начать транзакцию", err)
	}
	defer rollback()

	pdfPath, err := s.patientRepository.Delete(ctx, exec, patientUUID, claims.UserUUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("[PatientService] %w", ErrNotFound)
		}
		return util.LogError("[PatientService] не удалось удалить карту", err)
	}

	if err := commit(); err != nil {
		return util.LogError("[PatientService] не удалось закоммитить транзакцию", err)
	}

	if err := s.cacheRepository.DeletePatient(ctx, patientUUID); err != nil {
		log.Printf("[PatientService] ошибка инвалидации кэша: %v", err)
	}

	if err := s.storageInterface.DeleteObject(ctx, pdfPath); err != nil {
		log.Printf("[PatientService] не удалось удалить объект из S3: %v", err)
	}

	log.Printf("[PatientService] карта %s удалена", patientUUID)
	return nil
}
