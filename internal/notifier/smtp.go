package notifier

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/smtp"
	"strings"

	"secure-health-server/config"
	"secure-health-server/internal/util"
)

// SMTPMailer : шлюз исходящей почты поверх net/smtp.
// Письмо собирается как multipart/alternative с текстовой и HTML частью.
// Повторных попыток доставки нет: ошибка возвращается вызывающему один раз.
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
}

func NewSMTPMailer(cfg *config.SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, fmt.Errorf("[SMTPMailer] не заданы host и port SMTP сервера")
	}

	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		from: cfg.From,
		auth: auth,
	}, nil
}

// Send : отправляет письмо одному получателю
func (m *SMTPMailer) Send(ctx context.Context, to string, subject string, textBody string, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, contentType := buildBody(textBody, htmlBody)

	var headers []string
	headers = append(headers, fmt.Sprintf("From: %s", m.from))
	headers = append(headers, fmt.Sprintf("To: %s", to))
	headers = append(headers, fmt.Sprintf("Subject: %s", subject))
	headers = append(headers, "MIME-Version: 1.0")
	headers = append(headers, fmt.Sprintf("Content-Type: %s", contentType))

	raw := strings.Join(headers, "\r\n") + "\r\n\r\n" + body

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(raw)); err != nil {
		return util.LogError("[SMTPMailer] не удалось отправить письмо", err)
	}

	return nil
}

func buildBody(textBody, htmlBody string) (body string, contentType string) {
	if htmlBody != "" && textBody != "" {
		boundary := multipartBoundary()
		var sb strings.Builder
		sb.WriteString("This is a multipart message in MIME format.\r\n")
		fmt.Fprintf(&sb, "--%s\r\n", boundary)
		sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
		sb.WriteString("\r\n")
		sb.WriteString(textBody)
		sb.WriteString("\r\n")
		fmt.Fprintf(&sb, "--%s\r\n", boundary)
		sb.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
		sb.WriteString("\r\n")
		sb.WriteString(htmlBody)
		sb.WriteString("\r\n")
		fmt.Fprintf(&sb, "--%s--", boundary)
		return sb.String(), fmt.Sprintf("multipart/alternative; boundary=%s", boundary)
	}

	if htmlBody != "" {
		return htmlBody, "text/html; charset=UTF-8"
	}

	return textBody, "text/plain; charset=UTF-8"
}

func multipartBoundary() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "secure-health-boundary-fallback"
	}
	return "secure-health-boundary-" + hex.EncodeToString(b[:])
}
