package otp

import (
	"crypto/rand"
	"math/big"
	"strings"

	"secure-health-server/internal/util"
)

// CodeLength : длина одноразового кода доступа
const CodeLength = 6

// DigitSource : источник случайных цифровых строк фиксированной длины.
// Вынесен в интерфейс, чтобы тесты могли подставить детерминированную последовательность.
type DigitSource interface {
	NextDigitString(length int) (string, error)
}

// CryptoSource : производственный источник на crypto/rand.
// Каждая цифра выбирается независимо и равновероятно, поэтому код покрывает
// весь диапазон 000000–999999, включая значения с ведущими нулями.
// Генерация через "случайное число + печать" сузила бы пространство кодов,
// когда старший разряд равен нулю.
type CryptoSource struct{}

func NewCryptoSource() *CryptoSource {
	return &CryptoSource{}
}

func (s *CryptoSource) NextDigitString(length int) (string, error) {
	if length <= 0 {
		length = CodeLength
	}

	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", util.LogError("[OTP] ошибка генерации случайной цифры", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	return b.String(), nil
}

// Generator : выдаёт одноразовые коды доступа фиксированной длины
type Generator struct {
	source DigitSource
	length int
}

func NewGenerator(source DigitSource) *Generator {
	return &Generator{source: source, length: CodeLength}
}

func (g *Generator) NewCode() (string, error) {
	return g.source.NextDigitString(g.length)
}

// IsWellFormed : проверяет, что присланный код состоит ровно из CodeLength цифр
func IsWellFormed(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
