package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"secure-health-server/internal/model"
	"secure-health-server/internal/otp"
	"secure-health-server/internal/ports"
	"secure-health-server/internal/security"
	"secure-health-server/internal/util"

	"github.com/go-playground/validator/v10"
)

// AccessService : протокол одноразовых кодов доступа.
// Выдача: владелец записи привязывает код к email получателя, код уходит письмом.
// Погашение: совпадение email и кода гасит код тем же UPDATE, которым он
// проверяется, поэтому код можно погасить ровно один раз.
type AccessService struct {
	fileRepository    ports.PatientFileRepository
	patientRepository ports.PatientRepository
	grantRepository   ports.GrantRepository
	cacheRepository   ports.CacheRepository
	userRepository    ports.UserRepository
	storageInterface  ports.S3Storage
	mailer            ports.Mailer
	generator         *otp.Generator
	validate          *validator.Validate
	ttl               time.Duration
}

func NewAccessService(
	fileRepository ports.PatientFileRepository,
	patientRepository ports.PatientRepository,
	grantRepository ports.GrantRepository,
	cacheRepository ports.CacheRepository,
	userRepository ports.UserRepository,
	storageInterface ports.S3Storage,
	mailer ports.Mailer,
	generator *otp.Generator,
	ttl time.Duration,
) *AccessService {
	return &AccessService{
		fileRepository:    fileRepository,
		patientRepository: patientRepository,
		grantRepository:   grantRepository,
		cacheRepository:   cacheRepository,
		userRepository:    userRepository,
		storageInterface:  storageInterface,
		mailer:            mailer,
		generator:         generator,
		validate:          validator.New(),
		ttl:               ttl,
	}
}

// IssueFileGrant : выдаёт одноразовый код доступа к файлу пациента.
// Повторная выдача затирает предыдущий код. Код возвращается и при ошибке
// доставки письма: выданный код остаётся записанным на файле
func (s *AccessService) IssueFileGrant(ctx context.Context, fileUUID, recipientEmail string) (string, error) {
	claims, err := security.GetClaimsFromContext(ctx)
	if err != nil {
		return "", fmt.Errorf("[AccessService] пользователь не авторизован")
	}

	recipientEmail = strings.TrimSpace(recipientEmail)
	if err := s.validate.Var(recipientEmail, "required,email"); err != nil {
		return "", fmt.Errorf("[AccessService] %w: %s", ErrInvalidEmail, recipientEmail)
	}

	exec, rollback, commit, err := s.fileRepository.BeginTX(ctx)
	if err != nil {
		return "", util.LogError("[AccessService] не удалось начать транзакцию", err)
	}
	defer rollback()

	file, err := s.fileRepository.GetByUUID(ctx, exec, fileUUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("[AccessService] %w", ErrNotFound)
		}
		return "", util.LogError("[AccessService] не удалось получить файл", err)
	}

	isOwner, err := s.grantRepository.CheckFileOwner(ctx, exec, fileUUID, claims.UserUUID)
	if err != nil {
		return "", util.LogError("[AccessService] не удалось проверить владельца файла", err)
	}
	if !isOwner {
		return "", fmt.Errorf("[AccessService] %w", ErrNotOwner)
	}

	if prev := file.Grant(); prev != nil {
		log.Printf("[AccessService] прежний код доступа к файлу %s (получатель %s) будет затёрт", fileUUID, prev.RecipientEmail)
	}

	code, err := s.generator.NewCode()
	if err != nil {
		return "", util.LogError("[AccessService] не удалось сгенерировать код", err)
	}

	if err := s.grantRepository.SetFileGrant(ctx, exec, fileUUID, code, recipientEmail); err != nil {
		return "", util.LogError("[AccessService] не удалось записать код доступа", err)
	}

	if err := commit(); err != nil {
		return "", util.LogError("[AccessService] не удалось закоммитить транзакцию", err)
	}

	if err := s.cacheRepository.DeletePatientFile(ctx, fileUUID); err != nil {
		log.Printf("[AccessService] ошибка инвалидации кэша: %v", err)
	}

	subject, text, html := fileAccessMail(file, code)
	if err := s.mailer.Send(ctx, recipientEmail, subject, text, html); err != nil {
		log.Printf("[AccessService] письмо на %s не отправлено: %v", recipientEmail, err)
		return code, fmt.Errorf("[AccessService] %w", ErrDeliveryFailed)
	}

	log.Printf("[AccessService] код доступа к файлу %s отправлен на %s", fileUUID, recipientEmail)
	return code, nil
}

// RedeemFileGrant : гасит код доступа к файлу и возвращает pre-signed GET URL.
// Отказ не различает причин: нет кода, неверный код или неверный email.
// Неудачная попытка не трогает выданный код, число попыток не ограничено
func (s *AccessService) RedeemFileGrant(ctx context.Context, fileUUID, email, code string) (*model.PatientFileResult, error) {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" || !otp.IsWellFormed(code) {
		return nil, fmt.Errorf("[AccessService] %w", ErrAccessDenied)
	}

	exec, rollback, commit, err := s.fileRepository.BeginTX(ctx)
	if err != nil {
		return nil, util.LogError("[AccessService] не удалось начать транзакцию", err)
	}
	defer rollback()

	file, err := s.fileRepository.GetByUUID(ctx, exec, fileUUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("[AccessService] %w", ErrNotFound)
		}
		return nil, util.LogError("[AccessService] не удалось получить файл", err)
	}

	storagePath, err := s.grantRepository.RedeemFileGrant(ctx, exec, fileUUID, email, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("[AccessService] %w", ErrAccessDenied)
		}
		return nil, util.LogError("[AccessService] не удалось погасить код доступа", err)
	}

	if err := commit(); err != nil {
		return nil, util.LogError("[AccessService] не удалось закоммитить транзакцию", err)
	}

	if err := s.cacheRepository.DeletePatientFile(ctx, fileUUID); err != nil {
		log.Printf("[AccessService] ошибка инвалидации кэша: %v", err)
	}

	getURL, err := s.storageInterface.GeneratePresignedGetURL(ctx, storagePath, s.ttl)
	if err != nil {
		return nil, util.LogError("[AccessService] не удалось сгенерировать pre-signed GET URL", err)
	}

	file.OTP = nil
	file.AccessEmail = nil

	log.Printf("[AccessService] код доступа к файлу %s погашен", fileUUID)
	return &model.PatientFileResult{File: file, GetURL: getURL}, nil
}

// IssuePatientGrant : выдаёт одноразовый код доступа к медицинской карте
func (s *AccessService) IssuePatientGrant(ctx context.Context, patientUUID, recipientEmail string) (string, error) {
	claims, err := security.GetClaimsFromContext(ctx)
	if err != nil {
		return "", fmt.Errorf("[AccessService] пользователь не авторизован")
	}

	recipientEmail = strings.TrimSpace(recipientEmail)
	if err := s.validate.Var(recipientEmail, "required,email"); err != nil {
		return "", fmt.Errorf("[AccessService] %w: %s", ErrInvalidEmail, recipientEmail)
	}

	exec, rollback, commit, err := s.patientRepository.BeginTX(ctx)
	if err != nil {
		return "", util.LogError("[AccessService] не удалось начать транзакцию", err)
	}
	defer rollback()

	patient, err := s.patientRepository.GetByUUID(ctx, exec, patientUUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("[AccessService] %w", ErrNotFound)
		}
		return "", util.LogError("[AccessService] не удалось получить карту", err)
	}

	isOwner, err := s.grantRepository.CheckPatientOwner(ctx, exec, patientUUID, claims.UserUUID)
	if err != nil {
		return "", util.LogError("[AccessService] не удалось проверить владельца карты", err)
	}
	if !isOwner {
		return "", fmt.Errorf("[AccessService] %w", ErrNotOwner)
	}

	if prev := patient.Grant(); prev != nil {
		log.Printf("[AccessService] прежний код доступа к карте %s (получатель %s) будет затёрт", patientUUID, prev.RecipientEmail)
	}

	code, err := s.generator.NewCode()
	if err != nil {
		return "", util.LogError("[AccessService] не удалось сгенерировать код", err)
	}

	if err := s.grantRepository.SetPatientGrant(ctx, exec, patientUUID, code, recipientEmail); err != nil {
		return "", util.LogError("[AccessService] не удалось записать код доступа", err)
	}

	if err := commit(); err != nil {
		return "", util.LogError("[AccessService] не удалось закоммитить транзакцию", err)
	}

	if err := s.cacheRepository.DeletePatient(ctx, patientUUID); err != nil {
		log.Printf("[AccessService] ошибка инвалидации кэша: %v", err)
	}

	subject, text, html := patientAccessMail(patient, code)
	if err := s.mailer.Send(ctx, recipientEmail, subject, text, html); err != nil {
		log.Printf("[AccessService] письмо на %s не отправлено: %v", recipientEmail, err)
		return code, fmt.Errorf("[AccessService] %w", ErrDeliveryFailed)
	}

	log.Printf("[AccessService] код доступа к карте %s отправлен на %s", patientUUID, recipientEmail)
	return code, nil
}

// RedeemPatientGrant : гасит код доступа к карте и возвращает pre-signed GET URL
// на PDF-сводку. Кроме привязанного email принимается email владельца карты —
// сотрудник получает код на свой адрес при создании карты
func (s *AccessService) RedeemPatientGrant(ctx context.Context, patientUUID, email, code string) (*model.PatientResult, error) {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" || !otp.IsWellFormed(code) {
		return nil, fmt.Errorf("[AccessService] %w", ErrAccessDenied)
	}

	exec, rollback, commit, err := s.patientRepository.BeginTX(ctx)
	if err != nil {
		return nil, util.LogError("[AccessService] не удалось начать транзакцию", err)
	}
	defer rollback()

	patient, err := s.patientRepository.GetByUUID(ctx, exec, patientUUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("[AccessService] %w", ErrNotFound)
		}
		return nil, util.LogError("[AccessService] не удалось получить карту", err)
	}

	pdfPath, err := s.grantRepository.RedeemPatientGrant(ctx, exec, patientUUID, email, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("[AccessService] %w", ErrAccessDenied)
		}
		return nil, util.LogError("[AccessService] не удалось погасить код доступа", err)
	}

	if err := commit(); err != nil {
		return nil, util.LogError("[AccessService] не удалось закоммитить транзакцию", err)
	}

	if err := s.cacheRepository.DeletePatient(ctx, patientUUID); err != nil {
		log.Printf("[AccessService] ошибка инвалидации кэша: %v", err)
	}

	getURL, err := s.storageInterface.GeneratePresignedGetURL(ctx, pdfPath, s.ttl)
	if err != nil {
		return nil, util.LogError("[AccessService] не удалось сгенерировать pre-signed GET URL", err)
	}

	patient.OTP = nil

	log.Printf("[AccessService] код доступа к карте %s погашен", patientUUID)
	return &model.PatientResult{Patient: patient, GetURL: getURL}, nil
}
