package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"finrag-go/internal/model"
)

// ErrJobNotFound 表示任务不存在或已过期。
var ErrJobNotFound = errors.New("ingest job not found")

const (
	jobTTL      = 7 * 24 * time.Hour
	attemptsTTL = 24 * time.Hour
)

// JobRepository 在 Redis 中保存异步入库任务的状态和重试计数。
type JobRepository interface {
	Save(ctx context.Context, job *model.IngestJob) error
	Get(ctx context.Context, taskID string) (*model.IngestJob, error)
	IncrAttempts(ctx context.Context, taskID string) (int64, error)
	ResetAttempts(ctx context.Context, taskID string) error
}

type jobRepository struct {
	redisClient *redis.Client
}

// NewJobRepository 创建一个新的 JobRepository 实例。
func NewJobRepository(redisClient *redis.Client) JobRepository {
	return &jobRepository{redisClient: redisClient}
}

func jobKey(taskID string) string {
	return "ingest:job:" + taskID
}

func attemptsKey(taskID string) string {
	return "kafka:attempts:" + taskID
}

func (r *jobRepository) Save(ctx context.Context, job *model.IngestJob) error {
	job.UpdatedAt = time.Now()
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return r.redisClient.Set(ctx, jobKey(job.TaskID), data, jobTTL).Err()
}

func (r *jobRepository) Get(ctx context.Context, taskID string) (*model.IngestJob, error) {
	data, err := r.redisClient.Get(ctx, jobKey(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	var job model.IngestJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", taskID, err)
	}
	return &job, nil
}

// IncrAttempts 使用 Redis 计数失败次数
func (r *jobRepository) IncrAttempts(ctx context.Context, taskID string) (int64, error) {
	attempts, err := r.redisClient.Incr(ctx, attemptsKey(taskID)).Result()
	if err != nil {
		return 0, err
	}
	_ = r.redisClient.Expire(ctx, attemptsKey(taskID), attemptsTTL).Err()
	return attempts, nil
}

func (r *jobRepository) ResetAttempts(ctx context.Context, taskID string) error {
	return r.redisClient.Del(ctx, attemptsKey(taskID)).Err()
}
