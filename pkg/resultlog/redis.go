package resultlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher публикует результат загрузки в Redis
//
// Redis-ключи:
//
//	SET  dealer:load:<name>:state  <JSON>  EX <ttl>  - для GET-запросов оркестратора
//	PUB  dealer:load:<name>                          - для event-driven маршрутизации
type RedisPublisher struct {
	client *redis.Client
	name   string
	ttl    time.Duration
}

// RedisOptions - параметры RedisPublisher
type RedisOptions struct {
	Address  string
	Password string
	DB       int
	Name     string
	TTL      time.Duration
}

// NewRedisPublisher создает новый Redis publisher
func NewRedisPublisher(opts RedisOptions) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &RedisPublisher{client: client, name: opts.Name, ttl: opts.TTL}
}

// StateKey возвращает ключ последнего состояния
func (p *RedisPublisher) StateKey() string {
	return fmt.Sprintf("dealer:load:%s:state", p.name)
}

// Channel возвращает канал событий
func (p *RedisPublisher) Channel() string {
	return fmt.Sprintf("dealer:load:%s", p.name)
}

// Publish публикует результат:
//   - SET dealer:load:<name>:state <JSON> EX <ttl>  → для опроса (polling)
//   - PUBLISH dealer:load:<name> <JSON>              → для подписки (pub/sub)
func (p *RedisPublisher) Publish(ctx context.Context, result Result) error {
	if result.Name == "" {
		result.Name = p.name
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := p.client.Set(ctx, p.StateKey(), payload, p.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}

	if err := p.client.Publish(ctx, p.Channel(), payload).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH failed: %w", err)
	}

	return nil
}

// Close закрывает соединение с Redis
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
