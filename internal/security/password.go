package security

import (
	"crypto/rand"
	"math/big"

	"secure-health-server/internal/util"

	"golang.org/x/crypto/bcrypt"
)

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// HashPassword : хэширует пароль перед сохранением в БД
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", util.LogError("ошибка хэширования пароля", err)
	}
	return string(hash), nil
}

// CheckPassword : сравнивает пароль с хэшем из БД
func CheckPassword(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GeneratePassword : генерирует стартовый пароль для новой учётной записи
func GeneratePassword(length int) (string, error) {
	if length <= 0 {
		length = 12
	}

	password := make([]byte, length)
	for i := range password {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(passwordAlphabet))))
		if err != nil {
			return "", util.LogError("ошибка генерации пароля", err)
		}
		password[i] = passwordAlphabet[n.Int64()]
	}

	return string(password), nil
}
