package resultlog

import (
	"fmt"
	"time"

	"github.com/ruslano69/dealer/pkg/config"
)

// New создает Publisher по конфигурации
// Для отключенной публикации возвращает Nop
func New(cfg config.ResultLogConfig) (Publisher, error) {
	switch cfg.Type {
	case "", "none":
		return Nop{}, nil
	case "redis":
		return NewRedisPublisher(RedisOptions{
			Address:  cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
			Name:     cfg.Name,
			TTL:      time.Duration(cfg.TTL) * time.Second,
		}), nil
	case "kafka":
		return NewKafkaPublisher(KafkaOptions{
			Brokers: cfg.Brokers,
			Topic:   cfg.Topic,
			Name:    cfg.Name,
		})
	default:
		return nil, fmt.Errorf("unknown result_log type: %s", cfg.Type)
	}
}
