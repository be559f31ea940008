package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"secure-health-server/config"
	"secure-health-server/internal/model"
	"secure-health-server/internal/otp"
	"secure-health-server/internal/ports"
	"secure-health-server/internal/security"
	"secure-health-server/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// UserService : учётные записи портала — регистрация и административные операции
type UserService struct {
	userRepository ports.UserRepository
	mailer         ports.Mailer
	generator      *otp.Generator
	validate       *validator.Validate
}

func NewUserService(userRepository ports.UserRepository, mailer ports.Mailer, generator *otp.Generator) *UserService {
	return &UserService{
		userRepository: userRepository,
		mailer:         mailer,
		generator:      generator,
		validate:       validator.New(),
	}
}

// Register : создаёт учётную запись с выбранной ролью.
// Пароль генерируется сервером и в открытом виде нигде не хранится:
// вход выполняется по одноразовому коду, первый код уходит в приветственном
// письме. Учётная запись остаётся созданной и при ошибке доставки письма
func (s *UserService) Register(ctx context.Context, username, email, role string) (*model.User, error) {
	db, ok := ctx.Value("db").(*config.Database)
	if !ok {
		return nil, fmt.Errorf("[UserService] database connection не найден в context")
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("[UserService] username не задан")
	}

	email = strings.TrimSpace(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("[UserService] %w: %s", ErrInvalidEmail, email)
	}

	switch role {
	case model.RoleAdmin, model.RoleDoctor, model.RoleManagement:
	default:
		return nil, fmt.Errorf("[UserService] %w: %s", ErrInvalidRole, role)
	}

	if _, err := s.userRepository.FindByUsername(ctx, db, username); err == nil {
		return nil, fmt.Errorf("[UserService] %w: username %s", ErrAlreadyExists, username)
	}
	if _, err := s.userRepository.FindByEmail(ctx, db, email); err == nil {
		return nil, fmt.Errorf("[UserService] %w: email %s", ErrAlreadyExists, email)
	}

	password, err := security.GeneratePassword(12)
	if err != nil {
		return nil, util.LogError("[UserService] не удалось сгенерировать пароль", err)
	}
	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, util.LogError("[UserService] не удалось захэшировать пароль", err)
	}

	code, err := s.generator.NewCode()
	if err != nil {
		return nil, util.LogError("[UserService] не удалось сгенерировать код входа", err)
	}

	user := &model.User{
		UUID:         uuid.New().String(),
		Username:     username,
		Email:        email,
		Role:         role,
		IsVerified:   true,
		PasswordHash: passwordHash,
		OTP:          &code,
	}

	createdUser, err := s.userRepository.CreateUser(ctx, db, user)
	if err != nil {
		return nil, util.LogError("[UserService] не удалось создать учётную запись", err)
	}

	subject, text, html := welcomeMail(user, code)
	if err := s.mailer.Send(ctx, email, subject, text, html); err != nil {
		log.Printf("[UserService] приветственное письмо не отправлено: %v", err)
		return createdUser, fmt.Errorf("[UserService] %w", ErrDeliveryFailed)
	}

	log.Printf("[UserService] учётная запись %s (%s) создана", username, role)
	return createdUser, nil
}

// GetUser : возвращает учётную запись по UUID
func (s *UserService) GetUser(ctx context.Context, userUUID string) (*model.User, error) {
	db, ok := ctx.Value("db").(*config.Database)
	if !ok {
		return nil, fmt.Errorf("[UserService] database connection не найден в context")
	}

	user, err := s.userRepository.FindByUUID(ctx, db, userUUID)
	if err != nil {
		return nil, fmt.Errorf("[UserService] %w", ErrNotFound)
	}
	return user, nil
}

// ListUsers : список учётных записей для администратора,
// при необходимости — с фильтром по роли
func (s *UserService) ListUsers(ctx context.Context, role string, cursor string, limit int) ([]*model.User, string, error) {
	db, ok := ctx.Value("db").(*config.Database)
	if !ok {
		return nil, "", fmt.Errorf("[UserService] database connection не найден в context")
	}

	if err := s.requireAdmin(ctx); err != nil {
		return nil, "", err
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	return s.userRepository.ListUsers(ctx, db, role, cursor, limit)
}

// RoleCounts : количество учётных записей по ролям для панели администратора
func (s *UserService) RoleCounts(ctx context.Context) (map[string]int, error) {
	db, ok := ctx.Value("db").(*config.Database)
	if !ok {
		return nil, fmt.Errorf("[UserService] database connection не найден в context")
	}

	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	return s.userRepository.CountByRole(ctx, db)
}

// DeleteUser : удаляет учётную запись. Администратор не может удалить сам себя
func (s *UserService) DeleteUser(ctx context.Context, userUUID string) error {
	db, ok := ctx.Value("db").(*config.Database)
	if !ok {
		return fmt.Errorf("[UserService] database connection не найден в context")
	}

	claims, err := security.GetClaimsFromContext(ctx)
	if err != nil {
		return fmt.Errorf("[UserService] пользователь не авторизован")
	}
	if !claims.IsAdmin {
		return fmt.Errorf("[UserService] %w", ErrForbidden)
	}
	if claims.UserUUID == userUUID {
		return fmt.Errorf("[UserService] %w: нельзя удалить собственную учётную запись", ErrForbidden)
	}

	if _, err := s.userRepository.FindByUUID(ctx, db, userUUID); err != nil {
		return fmt.Errorf("[UserService] %w", ErrNotFound)
	}

	if err := s.userRepository.DeleteUser(ctx, db, userUUID); err != nil {
		return util.LogError("[UserService] не удалось удалить учётную запись", err)
	}

	log.Printf("[UserService] учётная запись %s удалена администратором %s", userUUID, claims.UserUUID)
	return nil
}

func (s *UserService) requireAdmin(ctx context.Context) error {
	claims, err := security.GetClaimsFromContext(ctx)
	if err != nil {
		return fmt.Errorf("[UserService] пользователь не авторизован")
	}
	if !claims.IsAdmin {
		return fmt.Errorf("[UserService] %w", ErrForbidden)
	}
	return nil
}
