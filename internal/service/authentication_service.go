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
)

// AuthenticationService : вход по одноразовому коду.
// У учётной записи либо нет ожидающего кода, либо есть ровно один.
// Запрос кода переводит запись в состояние "код выдан" (повторный запрос
// затирает прежний код), успешный вход гасит код тем же UPDATE
type AuthenticationService struct {
	jwtRepoInterface ports.JWTRepositoryInterface
	*config.AppConfig
	jwtServiceInterface ports.JWTServiceInterface
	userRepository      ports.UserRepository
	mailer              ports.Mailer
	generator           *otp.Generator
}

func NewAuthenticationService(
	repo ports.JWTRepositoryInterface,
	cfg *config.AppConfig,
	service ports.JWTServiceInterface,
	userInterface ports.UserRepository,
	mailer ports.Mailer,
	generator *otp.Generator,
) *AuthenticationService {
	return &AuthenticationService{
		repo,
		cfg,
		service,
		userInterface,
		mailer,
		generator,
	}
}

// RequestLoginCode : выдаёт новый код входа и отправляет его на
// зарегистрированный email учётной записи
func (s *AuthenticationService) RequestLoginCode(ctx context.Context, username string) error {
	db, ok := ctx.Value("db").(*config.Database)
	if !ok {
		return fmt.Errorf("[AuthenticationService] database connection не найден в context")
	}

	user, err := s.userRepository.FindByUsername(ctx, db, username)
	if err != nil {
		return fmt.Errorf("[AuthenticationService] %w", ErrNotFound)
	}

	if user.HasPendingLoginCode() {
		log.Printf("[AuthenticationService] прежний код входа для %s будет затёрт", username)
	}

	code, err := s.generator.NewCode()
	if err != nil {
		return util.LogError("[AuthenticationService] не удалось сгенерировать код входа", err)
	}

	if err := s.userRepository.SetLoginCode(ctx, db, user.UUID, code); err != nil {
		return util.LogError("[AuthenticationService] не удалось записать код входа", err)
	}

	subject, text, html := loginCodeMail(user, code)
	if err := s.mailer.Send(ctx, user.Email, subject, text, html); err != nil {
		log.Printf("[AuthenticationService] письмо с кодом входа не отправлено: %v", err)
		return fmt.Errorf("[AuthenticationService] %w", ErrDeliveryFailed)
	}

	log.Printf("[AuthenticationService] код входа для %s отправлен", username)
	return nil
}

// Login : проверяет код входа и возвращает пару токенов.
// Несовпавший код остаётся выданным, число попыток не ограничено.
// Совпавший код гасится и повторно не принимается
func (s *AuthenticationService) Login(ctx context.Context, username, code, userAgent, ipAddress string) (*model.TokensPair, error) {
	db, ok := ctx.Value("db").(*config.Database)
	if !ok {
		return nil, fmt.Errorf("[AuthenticationService] database connection не найден в context")
	}

	code = strings.TrimSpace(code)
	if !otp.IsWellFormed(code) {
		return nil, fmt.Errorf("[AuthenticationService] %w", ErrInvalidCode)
	}

	user, err := s.userRepository.RedeemLoginCode(ctx, db, username, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("[AuthenticationService] %w", ErrInvalidCode)
		}
		return nil, util.LogError("[AuthenticationService] не удалось проверить код входа", err)
	}

	tokens, refreshToken, err := s.jwtServiceInterface.GenerateAccessRefreshTokens(user.UUID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("ошибка генерации токенов: %w", err)
	}

	refreshToken.UserAgent = userAgent
	refreshToken.IpAddress = ipAddress

	if err := s.jwtRepoInterface.SaveRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("ошибка сохранения refresh токена: %w", err)
	}

	log.Printf("[AuthenticationService] пользователь %s вошёл по коду", username)
	return tokens, nil
}

// RefreshToken обновляет refresh-токен
// Выполняет следующие требования к операции refresh:
//  1. Операцию refresh можно выполнить только той парой токенов, которая была выдана вместе.
//  2. Запрещает операцию обновления токенов при изменении User-Agent.
//     При этом, после неудачной попытки выполнения операции, деавторизует пользователя,
//     который попытался выполнить обновление токенов.
//  3. Вход с нового IP фиксируется в логе, операция при этом не запрещается.
//
// Возвращает:
//   - model.TokensPair
//   - ошибку, если не удалось обновить токен.
func (s *AuthenticationService) RefreshToken(ctx context.Context, userAgent string, ipAddress string, accessToken string, refreshToken string) (*model.TokensPair, error) {
	claims, err := s.jwtServiceInterface.ValidateJWT(accessToken, []byte(s.AppConfig.JWT.SecretKey))
	if err != nil {
		return nil, util.LogError("не удалось провалидировать токен", err)
	}

	refreshTokenUUID := claims.RefreshTokenUUID
	userUUID := claims.UserUUID

	storedRefreshToken, err := s.jwtRepoInterface.FindByUUID(ctx, refreshTokenUUID)
	if err != nil {
		return nil, util.LogError("не удалось найти рефреш токен", err)
	}
	if storedRefreshToken.Used {
		log.Printf("refresh token %s уже был использован", refreshTokenUUID)
		return nil, fmt.Errorf("невалидный токен")
	}

	if time.Now().UTC().After(storedRefreshToken.ExpireAt) {
		log.Printf("refresh token %s просрочен", refreshTokenUUID)
		return nil, fmt.Errorf("невалидный токен")
	}

	if storedRefreshToken.UserAgent != userAgent {
		if err := s.jwtRepoInterface.MarkRefreshTokenUsedByUUID(ctx, refreshTokenUUID); err != nil {
			log.Printf("не удалось пометить токен использованным: %v", err)
		}
		log.Printf("refresh token %s: попытка обновления с другого User-Agent", refreshTokenUUID)
		return nil, fmt.Errorf("невалидный токен")
	}

	if storedRefreshToken.IpAddress != ipAddress {
		log.Printf("refresh token %s: вход с нового ip адреса %s (был %s)", refreshTokenUUID, ipAddress, storedRefreshToken.IpAddress)
	}

	if !security.CheckPassword(storedRefreshToken.TokenHash, refreshToken) {
		log.Printf("refresh token %s: хэш токена не совпал", refreshTokenUUID)
		return nil, fmt.Errorf("невалидный токен")
	}

	if err := s.jwtRepoInterface.MarkRefreshTokenUsedByUUID(ctx, refreshTokenUUID); err != nil {
		return nil, util.LogError("не удалось использовать токен", err)
	}

	tokensPair, newRefreshToken, err := s.jwtServiceInterface.GenerateAccessRefreshTokens(userUUID, claims.Role)
	if err != nil {
		return nil, util.LogError("ошибка генерации токенов", err)
	}

	newRefreshToken.UserAgent = userAgent
	newRefreshToken.IpAddress = ipAddress
	err = s.jwtRepoInterface.SaveRefreshToken(ctx, newRefreshToken)
	if err != nil {
		return nil, util.LogError("не удалось сохранить рефреш токен", err)
	}

	return tokensPair, nil
}

// Logout "деактивирует" пользователя.
// Изменяет статус поля used у refresh-токена и делает его равным true
func (s *AuthenticationService) Logout(ctx context.Context, refreshTokenUUID string) error {
	err := s.jwtRepoInterface.MarkRefreshTokenUsedByUUID(ctx, refreshTokenUUID)
	if err != nil {
		return fmt.Errorf("не удалось использовать токен: %w", err)
	}
	return nil
}
