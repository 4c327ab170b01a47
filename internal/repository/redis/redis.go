package redis

import (
	"context"
	"time"

	"bioflow/internal/telemetry"

	redis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// statusTTL bounds how long a finished job's status record is kept.
const statusTTL = 24 * time.Hour

type RedisClient interface {
	EnqueueJob(ctx context.Context, job string) error
	DequeueJob(ctx context.Context) (string, error)
	EnqueueJobResult(ctx context.Context, result string) error
	SetJobStatus(ctx context.Context, id string, status string) error
	GetJobStatus(ctx context.Context, id string) (string, error)
	Close() error
}

type DefaultRedisClient struct {
	client      *redis.Client
	jobQueue    string
	resultQueue string
}

func NewDefaultRedisClient(addr string) (*DefaultRedisClient, error) {
	options := &redis.Options{
		Addr: addr,
	}

	client := redis.NewClient(options)
	_, err := client.Ping(context.Background()).Result()
	if err != nil {
		telemetry.Logger.Error("System Error: Failed to connect to Redis", zap.Error(err))
		return nil, err
	}
	telemetry.Logger.Info("Connected to Redis", zap.String("addr", addr))

	return &DefaultRedisClient{client: client, jobQueue: "jobs", resultQueue: "job_results"}, nil
}

// EnqueueJob pushes a job onto the Redis jobQueue, using LPUSH.
func (r *DefaultRedisClient) EnqueueJob(ctx context.Context, job string) error {
	err := r.client.LPush(ctx, r.jobQueue, job).Err()
	if err != nil {
		telemetry.Logger.Error("System Error: Failed to enqueue job in Redis", zap.String("queue", r.jobQueue), zap.Error(err))
		return err
	}
	telemetry.Logger.Info("Job enqueued in Redis", zap.String("queue", r.jobQueue))
	return nil
}

// DequeueJob pops a job from the Redis jobQueue, using BRPOP. An empty
// string with no error means the wait timed out with nothing queued.
func (r *DefaultRedisClient) DequeueJob(ctx context.Context) (string, error) {
	res, err := r.client.BRPop(ctx, time.Second*30, r.jobQueue).Result()
	if err != nil {
		if err == redis.Nil {
			telemetry.Logger.Info("No job available in Redis queue", zap.String("queue", r.jobQueue))
			return "", nil
		}
		telemetry.Logger.Error("System Error: Failed to dequeue job from Redis", zap.String("queue", r.jobQueue), zap.Error(err))
		return "", err
	}
	telemetry.Logger.Info("Job dequeued from Redis", zap.String("queue", r.jobQueue))
	return res[1], nil
}

// EnqueueJobResult pushes a finished job's result payload onto the result queue.
func (r *DefaultRedisClient) EnqueueJobResult(ctx context.Context, result string) error {
	err := r.client.LPush(ctx, r.resultQueue, result).Err()
	if err != nil {
		telemetry.Logger.Error("System Error: Failed to enqueue job result in Redis", zap.String("queue", r.resultQueue), zap.Error(err))
		return err
	}
	return nil
}

// SetJobStatus stores the serialized status record for a relay job.
func (r *DefaultRedisClient) SetJobStatus(ctx context.Context, id string, status string) error {
	err := r.client.Set(ctx, statusKey(id), status, statusTTL).Err()
	if err != nil {
		telemetry.Logger.Error("System Error: Failed to store job status in Redis", zap.String("job_id", id), zap.Error(err))
		return err
	}
	return nil
}

// GetJobStatus fetches the serialized status record for a relay job. An
// empty string with no error means no record exists.
func (r *DefaultRedisClient) GetJobStatus(ctx context.Context, id string) (string, error) {
	res, err := r.client.Get(ctx, statusKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		telemetry.Logger.Error("System Error: Failed to fetch job status from Redis", zap.String("job_id", id), zap.Error(err))
		return "", err
	}
	return res, nil
}

func statusKey(id string) string {
	return "jobs:status:" + id
}

// Close closes the Redis client connection
func (r *DefaultRedisClient) Close() error {
	err := r.client.Close()
	if err != nil {
		telemetry.Logger.Error("System Error: Failed to close Redis client", zap.Error(err))
		return err
	}
	telemetry.Logger.Info("Redis client closed")
	return nil
}
