package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"secure-health-server/config"
	"secure-health-server/internal/model"
	"secure-health-server/internal/util"

	"github.com/jmoiron/sqlx"
)

type UserRepository struct {
	*config.Database
}

func NewUserRepository(database *config.Database) *UserRepository {
	return &UserRepository{database}
}

// CreateUser : сохраняет новую учётную запись
func (r *UserRepository) CreateUser(ctx context.Context, exec sqlx.ExtContext, user *model.User) (*model.User, error) {
	query := `
	INSERT INTO users (uuid, username, email, role, is_verified, password_hash, otp)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING uuid, username, email, role, is_verified, created_at
	`

	createdUser := &model.User{}
	err := exec.QueryRowxContext(ctx, query,
		user.UUID, user.Username, user.Email, user.Role, user.IsVerified, user.PasswordHash, user.OTP).
		Scan(&createdUser.UUID, &createdUser.Username, &createdUser.Email,
			&createdUser.Role, &createdUser.IsVerified, &createdUser.CreatedAt)

	if err != nil {
		return nil, util.LogError("[UserRepo] ошибка вставки данных в БД", err)
	}

	return createdUser, nil
}

// FindByUUID : ищет пользователя по UUID
func (r *UserRepository) FindByUUID(ctx context.Context, exec sqlx.ExtContext, uuid string) (*model.User, error) {
	query := `SELECT uuid, username, email, role, is_verified, password_hash, otp, created_at FROM users WHERE uuid = $1`
	var user model.User
	err := sqlx.GetContext(ctx, exec, &user, query, uuid)
	if err != nil {
		return nil, util.LogError("[UserRepo] не удалось найти пользователя в БД", err)
	}
	return &user, nil
}

// FindByUsername : ищет пользователя по имени учётной записи
func (r *UserRepository) FindByUsername(ctx context.Context, exec sqlx.ExtContext, username string) (*model.User, error) {
	query := `SELECT uuid, username, email, role, is_verified, password_hash, otp, created_at FROM users WHERE username = $1`
	var user model.User
	err := sqlx.GetContext(ctx, exec, &user, query, username)
	if err != nil {
		return nil, util.LogError("[UserRepo] не удалось найти пользователя по username", err)
	}
	return &user, nil
}

// FindByEmail : ищет пользователя по email
func (r *UserRepository) FindByEmail(ctx context.Context, exec sqlx.ExtContext, email string) (*model.User, error) {
	query := `SELECT uuid, username, email, role, is_verified, password_hash, otp, created_at FROM users WHERE email = $1`
	var user model.User
	err := sqlx.GetContext(ctx, exec, &user, query, email)
	if err != nil {
		return nil, util.LogError("[UserRepo] не удалось найти пользователя по email", err)
	}
	return &user, nil
}

// DeleteUser : удаляет пользователя по его UUID
func (r *UserRepository) DeleteUser(ctx context.Context, exec sqlx.ExtContext, uuid string) error {
	query := `DELETE FROM users WHERE uuid = $1`
	_, err := exec.ExecContext(ctx, query, uuid)
	if err != nil {
		return util.LogError("[UserRepo] не удалось удалить пользователя", err)
	}
	return nil
}

// SetLoginCode : записывает одноразовый код входа на учётную запись,
// затирая предыдущий код, если он был
func (r *UserRepository) SetLoginCode(ctx context.Context, exec sqlx.ExtContext, userUUID string, code string) error {
	query := `UPDATE users SET otp = $2 WHERE uuid = $1`

	result, err := exec.ExecContext(ctx, query, userUUID, code)
	if err != nil {
		return util.LogError("[UserRepo] не удалось записать код входа", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return util.LogError("[UserRepo] не удалось проверить, записан ли код входа", err)
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// RedeemLoginCode : сравнивает и гасит код входа одним UPDATE.
// sql.ErrNoRows означает, что кода нет или он не совпал
func (r *UserRepository) RedeemLoginCode(ctx context.Context, exec sqlx.ExtContext, username string, code string) (*model.User, error) {
	query := `
		UPDATE users
		SET otp = NULL
		WHERE username = $1 AND otp IS NOT NULL AND otp = $2
		RETURNING uuid, username, email, role, is_verified, password_hash, otp, created_at
	`

	var user model.User
	err := sqlx.GetContext(ctx, exec, &user, query, username, code)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// CountByRole : количество учётных записей по ролям для панели администратора
func (r *UserRepository) CountByRole(ctx context.Context, exec sqlx.ExtContext) (map[string]int, error) {
	query := `SELECT role, COUNT(*) AS total FROM users GROUP BY role`

	rows, err := exec.QueryxContext(ctx, query)
	if err != nil {
		return nil, util.LogError("[UserRepo] не удалось посчитать пользователей по ролям", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var role string
		var total int
		if err := rows.Scan(&role, &total); err != nil {
			return nil, util.LogError("[UserRepo] ошибка чтения строки", err)
		}
		counts[role] = total
	}

	return counts, rows.Err()
}

// ListUsers : вывод списка пользователей с cursor-based пагинацией,
// при необходимости — с фильтром по роли
func (r *UserRepository) ListUsers(ctx context.Context, exec sqlx.ExtContext, role string, cursor string, limit int) ([]*model.User, string, error) {
	query := `
        SELECT uuid, username, email, role, is_verified, password_hash, otp, created_at
        FROM users
        WHERE created_at > $1 AND ($2 = '' OR role = $2)
        ORDER BY created_at ASC, uuid ASC
        LIMIT $3
    `

	var cursorTime time.Time
	var err error

	if cursor == "" {
		cursorTime = time.Time{}
	} else {
		cursorTime, err = time.Parse(time.RFC3339Nano, cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor format: %w", err)
		}
	}

	var users []*model.User
	err = sqlx.SelectContext(ctx, exec, &users, query, cursorTime, role, limit+1) // +1 для проверки наличия следующей страницы
	if err != nil {
		return nil, "", util.LogError("[UserRepo] не удалось получить список пользователей", err)
	}

	var nextCursor string
	if len(users) > limit {
		users = users[:limit]
		nextCursor = users[len(users)-1].CreatedAt.Format(time.RFC3339Nano)
	}

	return users, nextCursor, nil
}

func (r *UserRepository) BeginTX(ctx context.Context) (sqlx.ExtContext, func() error, func() error, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	return tx, func() error { return tx.Rollback() }, func() error { return tx.Commit() }, nil
}
