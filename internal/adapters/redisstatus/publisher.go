package redisstatus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bandScalper/internal/domain"
	"bandScalper/internal/ports"
)

// Publisher stores the latest status as JSON under a key and announces it
// on a channel of the same name, so dashboards can either poll or subscribe.
type Publisher struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger ports.Logger
}

// Config holds configuration for the Redis status publisher.
type Config struct {
	Addr     string
	Password string
	DB       int
	Key      string        // Key and channel name, e.g. "scalper:status"
	TTL      time.Duration // Expiry of the stored snapshot, 0 keeps it forever
	Logger   ports.Logger
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, cfg Config) (*Publisher, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Redis publisher")
	}
	if cfg.Addr == "" || cfg.Key == "" {
		return nil, fmt.Errorf("%w: redis address and status key are required", ports.ErrConfigurationError)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w: %w", ports.ErrConnectionFailed, err)
	}
	cfg.Logger.Info(ctx, "Redis status publisher connected", map[string]interface{}{"addr": cfg.Addr, "key": cfg.Key})

	return &Publisher{client: client, key: cfg.Key, ttl: cfg.TTL, logger: cfg.Logger}, nil
}

// Publish writes status and notifies subscribers in one transaction.
func (p *Publisher) Publish(ctx context.Context, status domain.BotStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}

	pipe := p.client.TxPipeline()
	pipe.Set(ctx, p.key, data, p.ttl)
	pipe.Publish(ctx, p.key, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish status to %s: %w", p.key, err)
	}
	p.logger.Debug(ctx, "Status published", map[string]interface{}{"key": p.key, "bytes": len(data)})
	return nil
}

// Latest reads back the stored snapshot.
func (p *Publisher) Latest(ctx context.Context) (domain.BotStatus, error) {
	var status domain.BotStatus
	data, err := p.client.Get(ctx, p.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return status, ports.ErrNotFound
		}
		return status, fmt.Errorf("read status from %s: %w", p.key, err)
	}
	if err := json.Unmarshal(data, &status); err != nil {
		return status, fmt.Errorf("decode status: %w", err)
	}
	return status, nil
}

// Close closes the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
