package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"secure-health-server/config"
	"secure-health-server/internal/model"
	"secure-health-server/internal/util"

	"github.com/redis/go-redis/v9"
)

type CacheRepository struct {
	client *config.RedisClient
	ttl    time.Duration
}

func NewCacheRepository(rdb *config.RedisClient, ttl time.Duration) *CacheRepository {
	return &CacheRepository{rdb, ttl}
}

func (r *CacheRepository) SetPatientFile(ctx context.Context, file *model.PatientFile) error {
	return r.set(ctx, r.fileKey(file.UUID), file)
}

func (r *CacheRepository) GetPatientFile(ctx context.Context, uuid string) (*model.PatientFile, error) {
	var file model.PatientFile
	ok, err := r.get(ctx, r.fileKey(uuid), &file)
	if err != nil || !ok {
		return nil, err
	}
	return &file, nil
}

func (r *CacheRepository) DeletePatientFile(ctx context.Context, uuid string) error {
	if err := r.client.Client.Del(ctx, r.fileKey(uuid)).Err(); err != nil {
		return util.LogError("ошибка удаления файла из Redis", err)
	}
	return nil
}

func (r *CacheRepository) SetPatient(ctx context.Context, patient *model.Patient) error {
	return r.set(ctx, r.patientKey(patient.UUID), patient)
}

func (r *CacheRepository) GetPatient(ctx context.Context, uuid string) (*model.Patient, error) {
	var patient model.Patient
	ok, err := r.get(ctx, r.patientKey(uuid), &patient)
	if err != nil || !ok {
		return nil, err
	}
	return &patient, nil
}

func (r *CacheRepository) DeletePatient(ctx context.Context, uuid string) error {
	if err := r.client.Client.Del(ctx, r.patientKey(uuid)).Err(); err != nil {
		return util.LogError("ошибка удаления карты из Redis", err)
	}
	return nil
}

func (r *CacheRepository) set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return util.LogError("ошибка сериализации записи", err)
	}

	cmd := r.client.Client.Set(ctx, key, data, r.ttl)
	if err = cmd.Err(); err != nil {
		return util.LogError("ошибка сохранения в Redis", err)
	}
	if cmd.Val() != "OK" {
		return fmt.Errorf("неожиданный ответ Redis: %s", cmd.Val())
	}

	return nil
}

func (r *CacheRepository) get(ctx context.Context, key string, dest any) (bool, error) {
	val, err := r.client.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil // нет в кэше
	} else if err != nil {
		return false, util.LogError("ошибка получения записи из Redis", err)
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, util.LogError("ошибка десериализации записи из кэша", err)
	}
	return true, nil
}

func (r *CacheRepository) fileKey(uuid string) string {
	return fmt.Sprintf("patient_file:%s", uuid)
}

func (r *CacheRepository) patientKey(uuid string) string {
	return fmt.Sprintf("patient:%s", uuid)
}
