package retry

import (
	"fmt"
	"time"
)

// BackoffStrategy определяет стратегию задержки между повторами
type BackoffStrategy string

const (
	// BackoffConstant - постоянная задержка
	BackoffConstant BackoffStrategy = "constant"
	// BackoffLinear - линейное увеличение задержки
	BackoffLinear BackoffStrategy = "linear"
	// BackoffExponential - экспоненциальное увеличение задержки
	BackoffExponential BackoffStrategy = "exponential"
)

// Config содержит конфигурацию для retry механизма
type Config struct {
	// Enabled - включить retry механизм
	Enabled bool

	// MaxAttempts - максимальное количество попыток (включая первую)
	// 0 = бесконечные попытки (не рекомендуется)
	MaxAttempts int

	// InitialDelay - начальная задержка перед первым retry
	InitialDelay time.Duration

	// MaxDelay - максимальная задержка между попытками
	MaxDelay time.Duration

	// BackoffStrategy - стратегия увеличения задержки
	BackoffStrategy BackoffStrategy

	// BackoffMultiplier - множитель для exponential backoff (обычно 2.0)
	BackoffMultiplier float64

	// Jitter - добавлять случайность к задержке (0.0 - 1.0)
	Jitter float64

	// OnRetry - callback функция, вызываемая перед каждым retry
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts must be >= 0, got %d", c.MaxAttempts)
	}

	if c.InitialDelay < 0 {
		return fmt.Errorf("initial_delay must be >= 0")
	}

	if c.MaxDelay < c.InitialDelay {
		return fmt.Errorf("max_delay (%v) must be >= initial_delay (%v)", c.MaxDelay, c.InitialDelay)
	}

	if c.BackoffStrategy != BackoffConstant &&
		c.BackoffStrategy != BackoffLinear &&
		c.BackoffStrategy != BackoffExponential {
		return fmt.Errorf("invalid backoff strategy: %s", c.BackoffStrategy)
	}

	if c.BackoffMultiplier <= 0 {
		c.BackoffMultiplier = 2.0
	}

	if c.Jitter < 0 || c.Jitter > 1.0 {
		return fmt.Errorf("jitter must be between 0.0 and 1.0, got %f", c.Jitter)
	}

	return nil
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		Enabled:           false,
		MaxAttempts:       3,
		InitialDelay:      1 * time.Second,
		MaxDelay:          30 * time.Second,
		BackoffStrategy:   BackoffExponential,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
	}
}

// EnableRetry создает конфигурацию с включенным retry
func EnableRetry(maxAttempts int, initialDelay time.Duration) Config {
	config := DefaultConfig()
	config.Enabled = true
	config.MaxAttempts = maxAttempts
	config.InitialDelay = initialDelay
	return config
}

// UnprocessedItemsConfig - повторная отправка UnprocessedItems в DynamoDB:
// экспоненциальная задержка от 50ms до 5s, до 8 попыток
func UnprocessedItemsConfig() Config {
	config := EnableRetry(8, 50*time.Millisecond)
	config.MaxDelay = 5 * time.Second
	config.Jitter = 0.2
	return config
}
