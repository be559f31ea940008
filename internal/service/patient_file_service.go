package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"secure-health-server/config"
	"secure-health-server/internal/model"
	"secure-health-server/internal/ports"
	"secure-health-server/internal/security"
	"secure-health-server/internal/util"

	"github.com/google/uuid"
)

// PatientFileService : файлы пациентов, загружаемые врачами.
// Сам файл идёт в S3 напрямую по pre-signed PUT URL, в БД хранятся метаданные
type PatientFileService struct {
	fileRepository   ports.PatientFileRepository
	cacheRepository  ports.CacheRepository
	storageInterface ports.S3Storage
	ttl              time.Duration
}

func NewPatientFileService(
	fileRepository ports.PatientFileRepository,
	cacheRepository ports.CacheRepository,
	storageInterface ports.S3Storage,
	ttl time.Duration,
) *PatientFileService {
	return &PatientFileService{
		fileRepository:   fileRepository,
		cacheRepository:  cacheRepository,
		storageInterface: storageInterface,
		ttl:              ttl,
	}
}

// CreateFile : регистрирует файл пациента и возвращает pre-signed PUT URL для загрузки.
// Доступно только врачам
func (s *PatientFileService) CreateFile(ctx context.Context, file *model.PatientFile) (string, error) {
	db, ok := ctx.Value("db").(*config.Database)
	if !ok {
		return "", fmt.Errorf("[PatientFileService] database connection не найден в context")
	}

	claims, err := security.GetClaimsFromContext(ctx)
	if err != nil {
		return "", fmt.Errorf("[PatientFileService] пользователь не авторизован")
	}
	if claims.Role != model.RoleDoctor {
		return "", fmt.Errorf("[PatientFileService] %w", ErrForbidden)
	}

	if file.PatientName == "" || file.Filename == "" {
		return "", fmt.Errorf("[PatientFileService] не заполнены обязательные поля")
	}

	file.UUID = uuid.New().String()
	file.DoctorUUID = claims.UserUUID
	file.StoragePath = fmt.Sprintf("patient_files/%s/%s", file.UUID, file.Filename)

	putURL, err := s.storageInterface.GeneratePresignedPutURL(ctx, file.StoragePath, s.ttl)
	if err != nil {
		return "", util.LogError("[PatientFileService] не удалось сгенерировать pre-signed PUT URL", err)
	}

	if err := s.fileRepository.Create(ctx, db, file); err != nil {
		return "", util.LogError("[PatientFileService] не удалось сохранить файл в БД", err)
	}

	log.Printf("[PatientFileService] файл %s успешно создан", file.Filename)

	return putURL, nil
}

// GetFile : возвращает файл врача вместе с pre-signed GET URL
func (s *PatientFileService) GetFile(ctx context.Context, fileUUID string) (*model.PatientFileResult, error) {
	db, ok := ctx.Value("db").(*config.Database)
	if !ok {
		return nil, fmt.Errorf("[PatientFileService] database connection не найден в context")
	}

	claims, err := security.GetClaimsFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("[PatientFileService] пользователь не авторизован")
	}

	file, err := s.cacheRepository.GetPatientFile(ctx, fileUUID)
	if err != nil {
		log.Printf("[PatientFileService] ошибка кэширования: %v", err)
	}

	if file == nil {
		file, err = s.fileRepository.GetByUUID(ctx, db, fileUUID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("[PatientFileService] %w", ErrNotFound)
			}
			return nil, util.LogError("[PatientFileService] не удалось получить файл", err)
		}

		if err := s.cacheRepository.SetPatientFile(ctx, file); err != nil {
			log.Printf("[PatientFileService] ошибка кэширования файла: %v", err)
		} else {
			log.Printf("[PatientFileService] файл %s взят из БД и успешно кэширован Redis", file.Filename)
		}
	} else {
		log.Printf("[PatientFileService] файл %s взят из кэша Redis", file.Filename)
	}

	if file.DoctorUUID != claims.UserUUID {
		return nil, fmt.Errorf("[PatientFileService] %w", ErrNotOwner)
	}

	getURL, err := s.storageInterface.GeneratePresignedGetURL(ctx, file.StoragePath, s.ttl)
	if err != nil {
		return nil, util.LogError("[PatientFileService] не удалось сгенерировать pre-signed GET URL", err)
	}

	return &model.PatientFileResult{File: file, GetURL: getURL}, nil
}

// ListFiles : список файлов, загруженных текущим врачом
func (s *PatientFileService) ListFiles(ctx context.Context, cursor string, limit int) ([]model.PatientFile, string, error) {
	db, ok := ctx.Value("db").(*config.Database)
	if !ok {
		return nil, "", fmt.Errorf("[PatientFileService] database connection не найден в context")
	}

	claims, err := security.GetClaimsFromContext(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("[PatientFileService] пользователь не авторизован")
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	files, nextCursor, err := s.fileRepository.ListByDoctor(ctx, db, claims.UserUUID, cursor, limit)
	if err != nil {
		return nil, "", util.LogError("[PatientFileService] не удалось получить список файлов", err)
	}

	return files, nextCursor, nil
}

// DeleteFile : удаляет файл врача из БД (мягко) и из S3
func (s *PatientFileService) DeleteFile(ctx context.Context, fileUUID string) error {
	claims, err := security.GetClaimsFromContext(ctx)
	if err != nil {
		return fmt.Errorf("[PatientFileService] пользователь не авторизован")
	}

	exec, rollback, commit, err := s.fileRepository.BeginTX(ctx)
	if err != nil {
		return util.LogError("[PatientFileService] не удалось начать транзакцию", err)
	}
	defer rollback()

	storagePath, err := s.fileRepository.Delete(ctx, exec, fileUUID, claims.UserUUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("[PatientFileService] %w", ErrNotFound)
		}
		return util.LogError("[PatientFileService] не удалось удалить файл", err)
	}

	if err := commit(); err != nil {
		return util.LogError("[PatientFileService] не удалось закоммитить транзакцию", err)
	}

	if err := s.cacheRepository.DeletePatientFile(ctx, fileUUID); err != nil {
		log.Printf("[PatientFileService] ошибка инвалидации кэша: %v", err)
	}

	if err := s.storageInterface.DeleteObject(ctx, storagePath); err != nil {
		log.Printf("[PatientFileService] не удалось удалить объект из S3: %v", err)
	}

	log.Printf("[PatientFileService] файл %s удалён", fileUUID)
	return nil
}
