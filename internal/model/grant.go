package model

// Grant : выданная и ещё не погашенная пара (код, email получателя), привязанная к записи.
// Разрешает ровно одно будущее погашение. Код и email живут строго вместе:
// либо оба заданы (грант выдан), либо оба пусты (гранта нет).
type Grant struct {
	Code           string
	RecipientEmail string
}

// grantOf : собирает Grant из пары nullable-колонок БД.
// Возвращает nil, если грант не выдан.
func grantOf(code, email *string) *Grant {
	if code == nil || *code == "" {
		return nil
	}

	grant := &Grant{Code: *code}
	if email != nil {
		grant.RecipientEmail = *email
	}
	return grant
}
