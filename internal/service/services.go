package service

import (
	"bioflow/internal/client"
	"bioflow/internal/repository/redis"
	"bioflow/internal/telemetry"
)

// Services holds all application dependencies
type Services struct {
	Metrics telemetry.MetricsClient
	Redis   redis.RedisClient
	Remote  *client.Client
}

// NewServices creates a new Services instance
func NewServices(metrics telemetry.MetricsClient, redisClient redis.RedisClient, remote *client.Client) *Services {
	return &Services{
		Metrics: metrics,
		Redis:   redisClient,
		Remote:  remote,
	}
}
