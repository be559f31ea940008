package ports

import (
	"context"

	"secure-health-server/internal/model"
)

type AuthenticationService interface {
	RequestLoginCode(ctx context.Context, username string) error
	Login(ctx context.Context, username, code, userAgent, ipAddress string) (*model.TokensPair, error)
	RefreshToken(ctx context.Context, userAgent, ipAddress, accessToken, refreshToken string) (*model.TokensPair, error)
	Logout(ctx context.Context, refreshTokenUUID string) error
}
