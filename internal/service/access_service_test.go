package service_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"secure-health-server/internal/model"
	"secure-health-server/internal/otp"
	"secure-health-server/internal/security"
	"secure-health-server/internal/service"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ===== MOCKS =====

type MockPatientFileRepository struct{ mock.Mock }

func (m *MockPatientFileRepository) Create(ctx context.Context, exec sqlx.ExtContext, file *model.PatientFile) error {
	args := m.Called(ctx, exec, file)
	return args.Error(0)
}

func (m *MockPatientFileRepository) GetByUUID(ctx context.Context, exec sqlx.ExtContext, fileUUID string) (*model.PatientFile, error) {
	args := m.Called(ctx, exec, fileUUID)
	if f, ok := args.Get(0).(*model.PatientFile); ok {
		return f, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPatientFileRepository) ListByDoctor(ctx context.Context, exec sqlx.ExtContext, doctorUUID string, cursor string, limit int) ([]model.PatientFile, string, error) {
	args := m.Called(ctx, exec, doctorUUID, cursor, limit)
	if files, ok := args.Get(0).([]model.PatientFile); ok {
		return files, args.String(1), args.Error(2)
	}
	return nil, args.String(1), args.Error(2)
}

func (m *MockPatientFileRepository) Delete(ctx context.Context, exec sqlx.ExtContext, fileUUID string, doctorUUID string) (string, error) {
	args := m.Called(ctx, exec, fileUUID, doctorUUID)
	return args.String(0), args.Error(1)
}

func (m *MockPatientFileRepository) BeginTX(ctx context.Context) (sqlx.ExtContext, func() error, func() error, error) {
	args := m.Called(ctx)
	return args.Get(0).(sqlx.ExtContext), args.Get(1).(func() error), args.Get(2).(func() error), args.Error(3)
}

type MockPatientRepository struct{ mock.Mock }

func (m *MockPatientRepository) Create(ctx context.Context, exec sqlx.ExtContext, patient *model.Patient) error {
	args := m.Called(ctx, exec, patient)
	return args.Error(0)
}

func (m *MockPatientRepository) GetByUUID(ctx context.Context, exec sqlx.ExtContext, patientUUID string) (*model.Patient, error) {
	args := m.Called(ctx, exec, patientUUID)
	if p, ok := args.Get(0).(*model.Patient); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPatientRepository) ListByUploader(ctx context.Context, exec sqlx.ExtContext, uploaderUUID string, cursor string, limit int) ([]model.Patient, string, error) {
	args := m.Called(ctx, exec, uploaderUUID, cursor, limit)
	if patients, ok := args.Get(0).([]model.Patient); ok {
		return patients, args.String(1), args.Error(2)
	}
	return nil, args.String(1), args.Error(2)
}

func (m *MockPatientRepository) Delete(ctx context.Context, exec sqlx.ExtContext, patientUUID string, uploaderUUID string) (string, error) {
	args := m.Called(ctx, exec, patientUUID, uploaderUUID)
	return args.String(0), args.Error(1)
}

func (m *MockPatientRepository) BeginTX(ctx context.Context) (sqlx.ExtContext, func() error, func() error, error) {
	args := m.Called(ctx)
	return args.Get(0).(sqlx.ExtContext), args.Get(1).(func() error), args.Get(2).(func() error), args.Error(3)
}

type MockGrantRepository struct{ mock.Mock }

func (m *MockGrantRepository) SetFileGrant(ctx context.Context, exec sqlx.ExtContext, fileUUID, code, email string) error {
	args := m.Called(ctx, exec, fileUUID, code, email)
	return args.Error(0)
}

func (m *MockGrantRepository) RedeemFileGrant(ctx context.Context, exec sqlx.ExtContext, fileUUID, email, code string) (string, error) {
	args := m.Called(ctx, exec, fileUUID, email, code)
	return args.String(0), args.Error(1)
}

func (m *MockGrantRepository) CheckFileOwner(ctx context.Context, exec sqlx.ExtContext, fileUUID, doctorUUID string) (bool, error) {
	args := m.Called(ctx, exec, fileUUID, doctorUUID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGrantRepository) SetPatientGrant(ctx context.Context, exec sqlx.ExtContext, patientUUID, code, email string) error {
	args := m.Called(ctx, exec, patientUUID, code, email)
	return args.Error(0)
}

func (m *MockGrantRepository) RedeemPatientGrant(ctx context.Context, exec sqlx.ExtContext, patientUUID, email, code string) (string, error) {
	args := m.Called(ctx, exec, patientUUID, email, code)
	return args.String(0), args.Error(1)
}

func (m *MockGrantRepository) CheckPatientOwner(ctx context.Context, exec sqlx.ExtContext, patientUUID, uploaderUUID string) (bool, error) {
	args := m.Called(ctx, exec, patientUUID, uploaderUUID)
	return args.Bool(0), args.Error(1)
}

type MockCacheRepository struct{ mock.Mock }

func (m *MockCacheRepository) SetPatientFile(ctx context.Context, file *model.PatientFile) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}

func (m *MockCacheRepository) GetPatientFile(ctx context.Context, uuid string) (*model.PatientFile, error) {
	args := m.Called(ctx, uuid)
	if f, ok := args.Get(0).(*model.PatientFile); ok {
		return f, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCacheRepository) DeletePatientFile(ctx context.Context, uuid string) error {
	args := m.Called(ctx, uuid)
	return args.Error(0)
}

func (m *MockCacheRepository) SetPatient(ctx context.Context, patient *model.Patient) error {
	args := m.Called(ctx, patient)
	return args.Error(0)
}

func (m *MockCacheRepository) GetPatient(ctx context.Context, uuid string) (*model.Patient, error) {
	args := m.Called(ctx, uuid)
	if p, ok := args.Get(0).(*model.Patient); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCacheRepository) DeletePatient(ctx context.Context, uuid string) error {
	args := m.Called(ctx, uuid)
	return args.Error(0)
}

type MockS3Storage struct{ mock.Mock }

func (m *MockS3Storage) GeneratePresignedGetURL(ctx context.Context, key string, expire time.Duration) (string, error) {
	args := m.Called(ctx, key, expire)
	return args.String(0), args.Error(1)
}

func (m *MockS3Storage) GeneratePresignedPutURL(ctx context.Context, key string, expire time.Duration) (string, error) {
	args := m.Called(ctx, key, expire)
	return args.String(0), args.Error(1)
}

func (m *MockS3Storage) DeleteObject(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MockMailer struct{ mock.Mock }

func (m *MockMailer) Send(ctx context.Context, to string, subject string, textBody string, htmlBody string) error {
	args := m.Called(ctx, to, subject, textBody, htmlBody)
	return args.Error(0)
}

// fixedSource выдаёт один и тот же код, чтобы тесты знали, что уйдёт в письмо
type fixedSource struct{ code string }

func (s *fixedSource) NextDigitString(length int) (string, error) {
	return s.code, nil
}

type fakeTx struct{}

func (f *fakeTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}
func (f *fakeTx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, nil
}
func (f *fakeTx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return &sql.Row{}
}
func (f *fakeTx) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	return nil, nil
}
func (f *fakeTx) QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row {
	return &sqlx.Row{}
}
func (f *fakeTx) BindNamed(query string, arg interface{}) (string, []interface{}, error) {
	return "", nil, nil
}
func (f *fakeTx) DriverName() string         { return "fake" }
func (f *fakeTx) Rebind(query string) string { return query }

func noopTxFuncs() (func() error, func() error) {
	return func() error { return nil }, func() error { return nil }
}

// ===== Функция для создания сервиса с моками =====
func newTestAccessService(code string) (*service.AccessService, *MockPatientFileRepository, *MockPatientRepository, *MockGrantRepository, *MockCacheRepository, *MockS3Storage, *MockMailer) {
	mockFileRepo := new(MockPatientFileRepository)
	mockPatientRepo := new(MockPatientRepository)
	mockGrantRepo := new(MockGrantRepository)
	mockCache := new(MockCacheRepository)
	mockStorage := new(MockS3Storage)
	mockMailer := new(MockMailer)

	svc := service.NewAccessService(
		mockFileRepo,
		mockPatientRepo,
		mockGrantRepo,
		mockCache,
		nil, // UserRepository в протоколе кодов не используется
		mockStorage,
		mockMailer,
		otp.NewGenerator(&fixedSource{code: code}),
		time.Minute,
	)

	return svc, mockFileRepo, mockPatientRepo, mockGrantRepo, mockCache, mockStorage, mockMailer
}

func ctxWithClaims(userUUID string) context.Context {
	return context.WithValue(context.Background(), security.UserContextKey, &security.Claims{
		UserUUID: userUUID,
	})
}

// ===== TESTS =====

func TestIssueFileGrant_NotAuthorized(t *testing.T) {
	svc, _, _, _, _, _, _ := newTestAccessService("123456")

	_, err := svc.IssueFileGrant(context.Background(), "file1", "user@example.com")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "пользователь не авторизован")
}

func TestIssueFileGrant_InvalidEmail(t *testing.T) {
	svc, _, _, _, _, _, _ := newTestAccessService("123456")
	ctx := ctxWithClaims("doc1")

	_, err := svc.IssueFileGrant(ctx, "file1", "not-an-email")

	assert.ErrorIs(t, err, service.ErrInvalidEmail)
}

func TestIssueFileGrant_FileNotFound(t *testing.T) {
	svc, mockFileRepo, _, _, _, _, _ := newTestAccessService("123456")
	ctx := ctxWithClaims("doc1")

	mockTx := &fakeTx{}
	rollback, commit := noopTxFuncs()
	mockFileRepo.On("BeginTX", ctx).Return(mockTx, rollback, commit, nil).Once()
	mockFileRepo.On("GetByUUID", ctx, mockTx, "file1").Return(nil, sql.ErrNoRows).Once()

	_, err := svc.IssueFileGrant(ctx, "file1", "user@example.com")

	assert.ErrorIs(t, err, service.ErrNotFound)
	mockFileRepo.AssertExpectations(t)
}

// Код выдаёт только владелец файла: ничего не пишется, письмо не уходит
func TestIssueFileGrant_NotOwner(t *testing.T) {
	svc, mockFileRepo, _, mockGrantRepo, _, _, mockMailer := newTestAccessService("123456")
	ctx := ctxWithClaims("doc2")

	mockTx := &fakeTx{}
	rollback, commit := noopTxFuncs()
	mockFileRepo.On("BeginTX", ctx).Return(mockTx, rollback, commit, nil).Once()
	mockFileRepo.On("GetByUUID", ctx, mockTx, "file1").
		Return(&model.PatientFile{UUID: "file1", DoctorUUID: "doc1"}, nil).Once()
	mockGrantRepo.On("CheckFileOwner", ctx, mockTx, "file1", "doc2").Return(false, nil).Once()

	_, err := svc.IssueFileGrant(ctx, "file1", "user@example.com")

	assert.ErrorIs(t, err, service.ErrNotOwner)
	mockGrantRepo.AssertNotCalled(t, "SetFileGrant", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockMailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockFileRepo.AssertExpectations(t)
}

func TestIssueFileGrant_Success(t *testing.T) {
	svc, mockFileRepo, _, mockGrantRepo, mockCache, _, mockMailer := newTestAccessService("042137")
	ctx := ctxWithClaims("doc1")

	prevCode := "999000"
	prevEmail := "old@example.com"
	file := &model.PatientFile{
		UUID:        "file1",
		DoctorUUID:  "doc1",
		PatientName: "Иван Иванов",
		Filename:    "analysis.pdf",
		OTP:         &prevCode,
		AccessEmail: &prevEmail,
	}

	mockTx := &fakeTx{}
	rollback, commit := noopTxFuncs()
	mockFileRepo.On("BeginTX", ctx).Return(mockTx, rollback, commit, nil).Once()
	mockFileRepo.On("GetByUUID", ctx, mockTx, "file1").Return(file, nil).Once()
	mockGrantRepo.On("CheckFileOwner", ctx, mockTx, "file1", "doc1").Return(true, nil).Once()
	mockGrantRepo.On("SetFileGrant", ctx, mockTx, "file1", "042137", "user@example.com").Return(nil).Once()
	mockCache.On("DeletePatientFile", ctx, "file1").Return(nil).Once()
	mockMailer.On("Send", ctx, "user@example.com", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	code, err := svc.IssueFileGrant(ctx, "file1", "user@example.com")

	require.NoError(t, err)
	assert.Equal(t, "042137", code)
	mockFileRepo.AssertExpectations(t)
	mockGrantRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
	mockMailer.AssertExpectations(t)
}

// Код остаётся выданным и при ошибке доставки письма: вызов возвращает
// и код, и ошибку, чтобы владелец мог передать код другим каналом
func TestIssueFileGrant_DeliveryFailed(t *testing.T) {
	svc, mockFileRepo, _, mockGrantRepo, mockCache, _, mockMailer := newTestAccessService("042137")
	ctx := ctxWithClaims("doc1")

	file := &model.PatientFile{UUID: "file1", DoctorUUID: "doc1"}

	mockTx := &fakeTx{}
	rollback, commit := noopTxFuncs()
	mockFileRepo.On("BeginTX", ctx).Return(mockTx, rollback, commit, nil).Once()
	mockFileRepo.On("GetByUUID", ctx, mockTx, "file1").Return(file, nil).Once()
	mockGrantRepo.On("CheckFileOwner", ctx, mockTx, "file1", "doc1").Return(true, nil).Once()
	mockGrantRepo.On("SetFileGrant", ctx, mockTx, "file1", "042137", "user@example.com").Return(nil).Once()
	mockCache.On("DeletePatientFile", ctx, "file1").Return(nil).Once()
	mockMailer.On("Send", ctx, "user@example.com", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("smtp: connection refused")).Once()

	code, err := svc.IssueFileGrant(ctx, "file1", "user@example.com")

	assert.ErrorIs(t, err, service.ErrDeliveryFailed)
	assert.Equal(t, "042137", code)
	mockGrantRepo.AssertExpectations(t)
}

func TestRedeemFileGrant_MalformedCode(t *testing.T) {
	svc, mockFileRepo, _, _, _, _, _ := newTestAccessService("123456")

	for _, code := range []string{"", "12345", "1234567", "12a456"} {
		_, err := svc.RedeemFileGrant(context.Background(), "file1", "user@example.com", code)
		assert.ErrorIs(t, err, service.ErrAccessDenied)
	}

	mockFileRepo.AssertNotCalled(t, "BeginTX", mock.Anything)
}

// Неверный код и неверный email дают один и тот же отказ
func TestRedeemFileGrant_Denied(t *testing.T) {
	svc, mockFileRepo, _, mockGrantRepo, _, mockStorage, _ := newTestAccessService("123456")
	ctx := context.Background()

	file := &model.PatientFile{UUID: "file1", DoctorUUID: "doc1"}

	mockTx := &fakeTx{}
	rollback, commit := noopTxFuncs()
	mockFileRepo.On("BeginTX", ctx).Return(mockTx, rollback, commit, nil).Twice()
	mockFileRepo.On("GetByUUID", ctx, mockTx, "file1").Return(file, nil).Twice()
	mockGrantRepo.On("RedeemFileGrant", ctx, mockTx, "file1", "user@example.com", "654321").
		Return("", sql.ErrNoRows).Once()
	mockGrantRepo.On("RedeemFileGrant", ctx, mockTx, "file1", "other@example.com", "123456").
		Return("", sql.ErrNoRows).Once()

	_, errCode := svc.RedeemFileGrant(ctx, "file1", "user@example.com", "654321")
	_, errEmail := svc.RedeemFileGrant(ctx, "file1", "other@example.com", "123456")

	assert.ErrorIs(t, errCode, service.ErrAccessDenied)
	assert.ErrorIs(t, errEmail, service.ErrAccessDenied)
	mockStorage.AssertNotCalled(t, "GeneratePresignedGetURL", mock.Anything, mock.Anything, mock.Anything)
	mockGrantRepo.AssertExpectations(t)
}

func TestRedeemFileGrant_Success(t *testing.T) {
	svc, mockFileRepo, _, mockGrantRepo, mockCache, mockStorage, _ := newTestAccessService("123456")
	ctx := context.Background()

	grantCode := "123456"
	grantEmail := "user@example.com"
	file := &model.PatientFile{
		UUID:        "file1",
		DoctorUUID:  "doc1",
		Filename:    "analysis.pdf",
		StoragePath: "patient_files/doc1/file1",
		OTP:         &grantCode,
		AccessEmail: &grantEmail,
	}

	mockTx := &fakeTx{}
	rollback, commit := noopTxFuncs()
	mockFileRepo.On("BeginTX", ctx).Return(mockTx, rollback, commit, nil).Once()
	mockFileRepo.On("GetByUUID", ctx, mockTx, "file1").Return(file, nil).Once()
	mockGrantRepo.On("RedeemFileGrant", ctx, mockTx, "file1", "user@example.com", "123456").
		Return("patient_files/doc1/file1", nil).Once()
	mockCache.On("DeletePatientFile", ctx, "file1").Return(nil).Once()
	mockStorage.On("GeneratePresignedGetURL", ctx, "patient_files/doc1/file1", time.Minute).
		Return("http://get-url", nil).Once()

	res, err := svc.RedeemFileGrant(ctx, "file1", " user@example.com ", " 123456 ")

	require.NoError(t, err)
	assert.Equal(t, "http://get-url", res.GetURL)
	assert.Nil(t, res.File.Grant())
	mockGrantRepo.AssertExpectations(t)
	mockStorage.AssertExpectations(t)
}

func TestIssuePatientGrant_NotOwner(t *testing.T) {
	svc, _, mockPatientRepo, mockGrantRepo, _, _, _ := newTestAccessService("123456")
	ctx := ctxWithClaims("mgmt2")

	mockTx := &fakeTx{}
	rollback, commit := noopTxFuncs()
	mockPatientRepo.On("BeginTX", ctx).Return(mockTx, rollback, commit, nil).Once()
	mockPatientRepo.On("GetByUUID", ctx, mockTx, "p1").
		Return(&model.Patient{UUID: "p1", UploadedBy: "mgmt1"}, nil).Once()
	mockGrantRepo.On("CheckPatientOwner", ctx, mockTx, "p1", "mgmt2").Return(false, nil).Once()

	_, err := svc.IssuePatientGrant(ctx, "p1", "user@example.com")

	assert.ErrorIs(t, err, service.ErrNotOwner)
	mockGrantRepo.AssertNotCalled(t, "SetPatientGrant", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIssuePatientGrant_Success(t *testing.T) {
	svc, _, mockPatientRepo, mockGrantRepo, mockCache, _, mockMailer := newTestAccessService("907711")
	ctx := ctxWithClaims("mgmt1")

	patient := &model.Patient{
		UUID:        "p1",
		FullName:    "Анна Петрова",
		DateOfBirth: "1990-04-01",
		UploadedBy:  "mgmt1",
	}

	mockTx := &fakeTx{}
	rollback, commit := noopTxFuncs()
	mockPatientRepo.On("BeginTX", ctx).Return(mockTx, rollback, commit, nil).Once()
	mockPatientRepo.On("GetByUUID", ctx, mockTx, "p1").Return(patient, nil).Once()
	mockGrantRepo.On("CheckPatientOwner", ctx, mockTx, "p1", "mgmt1").Return(true, nil).Once()
	mockGrantRepo.On("SetPatientGrant", ctx, mockTx, "p1", "907711", "user@example.com").Return(nil).Once()
	mockCache.On("DeletePatient", ctx, "p1").Return(nil).Once()
	mockMailer.On("Send", ctx, "user@example.com", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	code, err := svc.IssuePatientGrant(ctx, "p1", "user@example.com")

	require.NoError(t, err)
	assert.Equal(t, "907711", code)
	mockGrantRepo.AssertExpectations(t)
	mockMailer.AssertExpectations(t)
}

func TestRedeemPatientGrant_Success(t *testing.T) {
	svc, _, mockPatientRepo, mockGrantRepo, mockCache, mockStorage, _ := newTestAccessService("123456")
	ctx := context.Background()

	grantCode := "123456"
	patient := &model.Patient{
		UUID:        "p1",
		FullName:    "Анна Петрова",
		DateOfBirth: "1990-04-01",
		UploadedBy:  "mgmt1",
		PDFPath:     "patients/p1/Анна_Петрова_medical_record.pdf",
		OTP:         &grantCode,
	}

	mockTx := &fakeTx{}
	rollback, commit := noopTxFuncs()
	mockPatientRepo.On("BeginTX", ctx).Return(mockTx, rollback, commit, nil).Once()
	mockPatientRepo.On("GetByUUID", ctx, mockTx, "p1").Return(patient, nil).Once()
	mockGrantRepo.On("RedeemPatientGrant", ctx, mockTx, "p1", "owner@example.com", "123456").
		Return(patient.PDFPath, nil).Once()
	mockCache.On("DeletePatient", ctx, "p1").Return(nil).Once()
	mockStorage.On("GeneratePresignedGetURL", ctx, patient.PDFPath, time.Minute).
		Return("http://get-url", nil).Once()

	res, err := svc.RedeemPatientGrant(ctx, "p1", "owner@example.com", "123456")

	require.NoError(t, err)
	assert.Equal(t, "http://get-url", res.GetURL)
	assert.Nil(t, res.Patient.OTP)
	mockGrantRepo.AssertExpectations(t)
}

func TestRedeemPatientGrant_Denied(t *testing.T) {
	svc, _, mockPatientRepo, mockGrantRepo, _, _, _ := newTestAccessService("123456")
	ctx := context.Background()

	mockTx := &fakeTx{}
	rollback, commit := noopTxFuncs()
	mockPatientRepo.On("BeginTX", ctx).Return(mockTx, rollback, commit, nil).Once()
	mockPatientRepo.On("GetByUUID", ctx, mockTx, "p1").
		Return(&model.Patient{UUID: "p1", UploadedBy: "mgmt1"}, nil).Once()
	mockGrantRepo.On("RedeemPatientGrant", ctx, mockTx, "p1", "stranger@example.com", "123456").
		Return("", sql.ErrNoRows).Once()

	_, err := svc.RedeemPatientGrant(ctx, "p1", "stranger@example.com", "123456")

	assert.ErrorIs(t, err, service.ErrAccessDenied)
	mockGrantRepo.AssertExpectations(t)
}

// ===== Последовательные сценарии на фейковом хранилище грантов =====

// memoryGrantRepo хранит выданный грант в памяти и повторяет CAS-семантику
// SQL-реализации: погашение сверяет и очищает код одной операцией
type memoryGrantRepo struct {
	fileCode     string
	fileEmail    string
	patientCode  string
	patientEmail string
	owner        string
}

func (m *memoryGrantRepo) SetFileGrant(ctx context.Context, exec sqlx.ExtContext, fileUUID, code, email string) error {
	m.fileCode, m.fileEmail = code, email
	return nil
}

func (m *memoryGrantRepo) RedeemFileGrant(ctx context.Context, exec sqlx.ExtContext, fileUUID, email, code string) (string, error) {
	if m.fileCode == "" || m.fileCode != code || m.fileEmail != email {
		return "", sql.ErrNoRows
	}
	m.fileCode, m.fileEmail = "", ""
	return "patient_files/doc1/" + fileUUID, nil
}

func (m *memoryGrantRepo) CheckFileOwner(ctx context.Context, exec sqlx.ExtContext, fileUUID, doctorUUID string) (bool, error) {
	return doctorUUID == m.owner, nil
}

func (m *memoryGrantRepo) SetPatientGrant(ctx context.Context, exec sqlx.ExtContext, patientUUID, code, email string) error {
	m.patientCode, m.patientEmail = code, email
	return nil
}

func (m *memoryGrantRepo) RedeemPatientGrant(ctx context.Context, exec sqlx.ExtContext, patientUUID, email, code string) (string, error) {
	if m.patientCode == "" || m.patientCode != code || m.patientEmail != email {
		return "", sql.ErrNoRows
	}
	m.patientCode = ""
	return "patients/" + patientUUID + "/summary.pdf", nil
}

func (m *memoryGrantRepo) CheckPatientOwner(ctx context.Context, exec sqlx.ExtContext, patientUUID, uploaderUUID string) (bool, error) {
	return uploaderUUID == m.owner, nil
}

// sequenceSource выдаёт коды по очереди: каждая выдача получает свой код
type sequenceSource struct {
	codes []string
	next  int
}

func (s *sequenceSource) NextDigitString(length int) (string, error) {
	code := s.codes[s.next%len(s.codes)]
	s.next++
	return code, nil
}

func newLifecycleAccessService(grants *memoryGrantRepo, codes ...string) *service.AccessService {
	mockFileRepo := new(MockPatientFileRepository)
	mockPatientRepo := new(MockPatientRepository)
	mockCache := new(MockCacheRepository)
	mockStorage := new(MockS3Storage)
	mockMailer := new(MockMailer)

	mockTx := &fakeTx{}
	rollback, commit := noopTxFuncs()
	mockFileRepo.On("BeginTX", mock.Anything).Return(mockTx, rollback, commit, nil)
	mockFileRepo.On("GetByUUID", mock.Anything, mockTx, "file1").
		Return(&model.PatientFile{UUID: "file1", DoctorUUID: "doc1", Filename: "analysis.pdf"}, nil)
	mockCache.On("DeletePatientFile", mock.Anything, "file1").Return(nil)
	mockStorage.On("GeneratePresignedGetURL", mock.Anything, mock.Anything, mock.Anything).
		Return("http://get-url", nil)
	mockMailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	return service.NewAccessService(
		mockFileRepo,
		mockPatientRepo,
		grants,
		mockCache,
		nil,
		mockStorage,
		mockMailer,
		otp.NewGenerator(&sequenceSource{codes: codes}),
		time.Minute,
	)
}

// Повторная выдача затирает прежний код: старый код больше не гасится,
// новый гасится ровно один раз
func TestFileGrant_ReissueInvalidatesPreviousCode(t *testing.T) {
	grants := &memoryGrantRepo{owner: "doc1"}
	svc := newLifecycleAccessService(grants, "111111", "222222")
	ctx := ctxWithClaims("doc1")

	c1, err := svc.IssueFileGrant(ctx, "file1", "user@example.com")
	require.NoError(t, err)

	c2, err := svc.IssueFileGrant(ctx, "file1", "user@example.com")
	require.NoError(t, err)
	require.NotEqual(t, c1, c2)

	_, err = svc.RedeemFileGrant(context.Background(), "file1", "user@example.com", c1)
	assert.ErrorIs(t, err, service.ErrAccessDenied)

	res, err := svc.RedeemFileGrant(context.Background(), "file1", "user@example.com", c2)
	require.NoError(t, err)
	assert.Equal(t, "http://get-url", res.GetURL)

	_, err = svc.RedeemFileGrant(context.Background(), "file1", "user@example.com", c2)
	assert.ErrorIs(t, err, service.ErrAccessDenied)
}

// Неудачная попытка не трогает выданный код: следующая попытка с верными
// email и кодом проходит
func TestFileGrant_FailedAttemptKeepsCode(t *testing.T) {
	grants := &memoryGrantRepo{owner: "doc1"}
	svc := newLifecycleAccessService(grants, "314159")
	ctx := ctxWithClaims("doc1")

	code, err := svc.IssueFileGrant(ctx, "file1", "user@example.com")
	require.NoError(t, err)

	_, err = svc.RedeemFileGrant(context.Background(), "file1", "user@example.com", "999999")
	assert.ErrorIs(t, err, service.ErrAccessDenied)

	_, err = svc.RedeemFileGrant(context.Background(), "file1", "other@example.com", code)
	assert.ErrorIs(t, err, service.ErrAccessDenied)

	res, err := svc.RedeemFileGrant(context.Background(), "file1", "user@example.com", code)
	require.NoError(t, err)
	assert.NotEmpty(t, res.GetURL)
}
