package service_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"secure-health-server/config"
	"secure-health-server/internal/model"
	"secure-health-server/internal/security"
	"secure-health-server/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestPatientFileService() (*service.PatientFileService, *MockPatientFileRepository, *MockCacheRepository, *MockS3Storage) {
	mockFileRepo := new(MockPatientFileRepository)
	mockCache := new(MockCacheRepository)
	mockStorage := new(MockS3Storage)

	svc := service.NewPatientFileService(mockFileRepo, mockCache, mockStorage, time.Minute)
	return svc, mockFileRepo, mockCache, mockStorage
}

func doctorCtx(userUUID string) context.Context {
	ctx := context.WithValue(context.Background(), "db", &config.Database{})
	return context.WithValue(ctx, security.UserContextKey, &security.Claims{
		UserUUID: userUUID,
		Role:     model.RoleDoctor,
	})
}

// Файлы создают только врачи
func TestCreateFile_RoleForbidden(t *testing.T) {
	svc, mockFileRepo, _, _ := newTestPatientFileService()

	ctx := context.WithValue(context.Background(), "db", &config.Database{})
	ctx = context.WithValue(ctx, security.UserContextKey, &security.Claims{
		UserUUID: "mgmt1",
		Role:     model.RoleManagement,
	})

	_, err := svc.CreateFile(ctx, &model.PatientFile{PatientName: "Иван Иванов", Filename: "analysis.pdf"})

	assert.ErrorIs(t, err, service.ErrForbidden)
	mockFileRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateFile_MissingFields(t *testing.T) {
	svc, _, _, _ := newTestPatientFileService()

	_, err := svc.CreateFile(doctorCtx("doc1"), &model.PatientFile{Filename: "analysis.pdf"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "не заполнены обязательные поля")
}

func TestCreateFile_Success(t *testing.T) {
	svc, mockFileRepo, _, mockStorage := newTestPatientFileService()
	ctx := doctorCtx("doc1")

	file := &model.PatientFile{
		PatientName: "Иван Иванов",
		PatientID:   "P-1001",
		Disease:     "гипертония",
		Filename:    "analysis.pdf",
		MimeType:    "application/pdf",
		SizeBytes:   2048,
	}

	mockStorage.On("GeneratePresignedPutURL", ctx, mock.MatchedBy(func(key string) bool {
		return len(key) > 0
	}), time.Minute).Return("http://put-url", nil).Once()
	mockFileRepo.On("Create", ctx, mock.Anything, file).Return(nil).Once()

	putURL, err := svc.CreateFile(ctx, file)

	require.NoError(t, err)
	assert.Equal(t, "http://put-url", putURL)
	assert.Equal(t, "doc1", file.DoctorUUID)
	assert.NotEmpty(t, file.UUID)
	assert.Contains(t, file.StoragePath, file.UUID)
	mockStorage.AssertExpectations(t)
	mockFileRepo.AssertExpectations(t)
}

func TestGetFile_CacheHit(t *testing.T) {
	svc, mockFileRepo, mockCache, mockStorage := newTestPatientFileService()
	ctx := doctorCtx("doc1")

	file := &model.PatientFile{
		UUID:        "file1",
		DoctorUUID:  "doc1",
		Filename:    "analysis.pdf",
		StoragePath: "patient_files/file1/analysis.pdf",
	}

	mockCache.On("GetPatientFile", ctx, "file1").Return(file, nil).Once()
	mockStorage.On("GeneratePresignedGetURL", ctx, file.StoragePath, time.Minute).
		Return("http://get-url", nil).Once()

	res, err := svc.GetFile(ctx, "file1")

	require.NoError(t, err)
	assert.Equal(t, file, res.File)
	assert.Equal(t, "http://get-url", res.GetURL)
	mockFileRepo.AssertNotCalled(t, "GetByUUID", mock.Anything, mock.Anything, mock.Anything)
	mockCache.AssertExpectations(t)
}

func TestGetFile_CacheMissThenDB(t *testing.T) {
	svc, mockFileRepo, mockCache, mockStorage := newTestPatientFileService()
	ctx := doctorCtx("doc1")

	file := &model.PatientFile{
		UUID:        "file1",
		DoctorUUID:  "doc1",
		Filename:    "analysis.pdf",
		StoragePath: "patient_files/file1/analysis.pdf",
	}

	mockCache.On("GetPatientFile", ctx, "file1").Return(nil, nil).Once()
	mockFileRepo.On("GetByUUID", ctx, mock.Anything, "file1").Return(file, nil).Once()
	mockCache.On("SetPatientFile", ctx, file).Return(nil).Once()
	mockStorage.On("GeneratePresignedGetURL", ctx, file.StoragePath, time.Minute).
		Return("http://get-url", nil).Once()

	res, err := svc.GetFile(ctx, "file1")

	require.NoError(t, err)
	assert.Equal(t, "http://get-url", res.GetURL)
	mockFileRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

// Чужой файл не выдаётся даже из кэша
func TestGetFile_NotOwner(t *testing.T) {
	svc, _, mockCache, mockStorage := newTestPatientFileService()
	ctx := doctorCtx("doc2")

	file := &model.PatientFile{UUID: "file1", DoctorUUID: "doc1"}

	mockCache.On("GetPatientFile", ctx, "file1").Return(file, nil).Once()

	_, err := svc.GetFile(ctx, "file1")

	assert.ErrorIs(t, err, service.ErrNotOwner)
	mockStorage.AssertNotCalled(t, "GeneratePresignedGetURL", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetFile_NotFound(t *testing.T) {
	svc, mockFileRepo, mockCache, _ := newTestPatientFileService()
	ctx := doctorCtx("doc1")

	mockCache.On("GetPatientFile", ctx, "file1").Return(nil, nil).Once()
	mockFileRepo.On("GetByUUID", ctx, mock.Anything, "file1").Return(nil, sql.ErrNoRows).Once()

	_, err := svc.GetFile(ctx, "file1")

	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestListFiles(t *testing.T) {
	svc, mockFileRepo, _, _ := newTestPatientFileService()
	ctx := doctorCtx("doc1")

	mockFileRepo.On("ListByDoctor", ctx, mock.Anything, "doc1", "", 50).Return(
		[]model.PatientFile{
			{UUID: "file1", DoctorUUID: "doc1"},
			{UUID: "file2", DoctorUUID: "doc1"},
		}, "next", nil).Once()

	files, next, err := svc.ListFiles(ctx, "", 0) // limit по умолчанию

	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Equal(t, "next", next)
	mockFileRepo.AssertExpectations(t)
}

func TestDeleteFile_Success(t *testing.T) {
	svc, mockFileRepo, mockCache, mockStorage := newTestPatientFileService()
	ctx := doctorCtx("doc1")

	mockTx := &fakeTx{}
	rollback, commit := noopTxFuncs()
	mockFileRepo.On("BeginTX", ctx).Return(mockTx, rollback, commit, nil).Once()
	mockFileRepo.On("Delete", ctx, mockTx, "file1", "doc1").
		Return("patient_files/file1/analysis.pdf", nil).Once()
	mockCache.On("DeletePatientFile", ctx, "file1").Return(nil).Once()
	mockStorage.On("DeleteObject", ctx, "patient_files/file1/analysis.pdf").Return(nil).Once()

	err := svc.DeleteFile(ctx, "file1")

	require.NoError(t, err)
	mockFileRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
	mockStorage.AssertExpectations(t)
}

// Удаление не своего (или несуществующего) файла — один и тот же ErrNotFound
func TestDeleteFile_NotFound(t *testing.T) {
	svc, mockFileRepo, _, mockStorage := newTestPatientFileService()
	ctx := doctorCtx("doc2")

	mockTx := &fakeTx{}
	rollback, commit := noopTxFuncs()
	mockFileRepo.On("BeginTX", ctx).Return(mockTx, rollback, commit, nil).Once()
	mockFileRepo.On("Delete", ctx, mockTx, "file1", "doc2").Return("", sql.ErrNoRows).Once()

	err := svc.DeleteFile(ctx, "file1")

	assert.ErrorIs(t, err, service.ErrNotFound)
	mockStorage.AssertNotCalled(t, "DeleteObject", mock.Anything, mock.Anything)
}
