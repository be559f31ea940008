package ports

import "context"

// Mailer : шлюз исходящей почты. Ошибка доставки возвращается один раз,
// повторных попыток отправки нет.
type Mailer interface {
	Send(ctx context.Context, to string, subject string, textBody string, htmlBody string) error
}
