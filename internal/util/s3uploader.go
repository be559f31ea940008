package util

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// S3Uploader : загрузка содержимого по pre-signed PUT URL.
// Сервер пользуется им сам, когда кладёт в хранилище сгенерированные PDF
type S3Uploader struct {
	client *http.Client
}

func NewS3Uploader() *S3Uploader {
	return &S3Uploader{
		client: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// UploadBytes : синхронно загружает данные по pre-signed URL
func (u *S3Uploader) UploadBytes(ctx context.Context, presignedURL string, data []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presignedURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.ContentLength = int64(len(data))
	req.Header.Set("Content-Type", contentType)

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ошибка загрузки: статус %d, ответ: %s", resp.StatusCode, string(body))
	}

	return nil
}
