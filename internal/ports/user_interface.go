package ports

import (
	"context"

	"secure-health-server/internal/model"

	"github.com/jmoiron/sqlx"
)

type UserRepository interface {
	CreateUser(ctx context.Context, exec sqlx.ExtContext, user *model.User) (*model.User, error)
	FindByUUID(ctx context.Context, exec sqlx.ExtContext, uuid string) (*model.User, error)
	FindByUsername(ctx context.Context, exec sqlx.ExtContext, username string) (*model.User, error)
	FindByEmail(ctx context.Context, exec sqlx.ExtContext, email string) (*model.User, error)
	DeleteUser(ctx context.Context, exec sqlx.ExtContext, uuid string) error
	ListUsers(ctx context.Context, exec sqlx.ExtContext, role string, cursor string, limit int) ([]*model.User, string, error)
	CountByRole(ctx context.Context, exec sqlx.ExtContext) (map[string]int, error)
	SetLoginCode(ctx context.Context, exec sqlx.ExtContext, userUUID string, code string) error
	RedeemLoginCode(ctx context.Context, exec sqlx.ExtContext, username string, code string) (*model.User, error)
	BeginTX(ctx context.Context) (sqlx.ExtContext, func() error, func() error, error)
}

type UserService interface {
	Register(ctx context.Context, username, email, role string) (*model.User, error)
	GetUser(ctx context.Context, uuid string) (*model.User, error)
	ListUsers(ctx context.Context, role string, cursor string, limit int) ([]*model.User, string, error)
	RoleCounts(ctx context.Context) (map[string]int, error)
	DeleteUser(ctx context.Context, uuid string) error
}
