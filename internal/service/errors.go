package service

import "errors"

// Ошибки уровня сервисов. Хэндлеры различают их через errors.Is
var (
	// ErrInvalidEmail : email получателя не прошёл синтаксическую проверку
	ErrInvalidEmail = errors.New("некорректный email")
	// ErrNotFound : запись не найдена или удалена
	ErrNotFound = errors.New("запись не найдена")
	// ErrNotOwner : запись принадлежит другому пользователю
	ErrNotOwner = errors.New("запись не принадлежит пользователю")
	// ErrAccessDenied : код не выдан, не совпал или не совпал email.
	// Причина отказа намеренно не различается
	ErrAccessDenied = errors.New("неверный email или код доступа")
	// ErrDeliveryFailed : письмо не отправлено; выданный код при этом
	// остаётся записанным
	ErrDeliveryFailed = errors.New("не удалось отправить письмо")
	// ErrForbidden : операция недоступна для роли пользователя
	ErrForbidden = errors.New("операция запрещена для этой роли")
	// ErrInvalidCode : код входа имеет неверный формат или не совпал
	ErrInvalidCode = errors.New("неверный код входа")
	// ErrAlreadyExists : учётная запись с таким username или email уже есть
	ErrAlreadyExists = errors.New("учётная запись уже существует")
)

// ErrInvalidRole : роль не входит в набор {admin, doctor, management}
var ErrInvalidRole = errors.New("некорректная роль")
