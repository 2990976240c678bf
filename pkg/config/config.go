// Package config загружает конфигурацию dealer: хранилища, логирование,
// загрузку файлов запросов и публикацию результатов.
//
// Источник - YAML-файл; поля хранилищ переопределяются переменными
// окружения с префиксом DEALER_<ИМЯ>_, например DEALER_WAREHOUSE_PASSWORD.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	cenv "github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/ruslano69/dealer/pkg/adapters"
	"github.com/ruslano69/dealer/pkg/files"
)

// EnvPrefix - общий префикс переменных окружения
const EnvPrefix = "DEALER_"

// Config - полная конфигурация
type Config struct {
	Name      string                   `yaml:"name"`
	Log       LogConfig                `yaml:"log"`
	Backends  map[string]BackendConfig `yaml:"backends" validate:"required,min=1,dive"`
	Files     FilesConfig              `yaml:"files"`
	ResultLog ResultLogConfig          `yaml:"result_log"`
}

// LogConfig - параметры логирования
type LogConfig struct {
	Level   string `yaml:"level" env:"LEVEL" validate:"omitempty,oneof=trace debug info warn error fatal"`
	Console bool   `yaml:"console" env:"CONSOLE"`
}

// BackendConfig - одно хранилище
// DSN можно задать целиком или собрать из Host/Port/User/Password/Database
type BackendConfig struct {
	Type     string        `yaml:"type" env:"TYPE" validate:"required,oneof=dynamodb mssql redshift postgres mysql sqlite"`
	DSN      string        `yaml:"dsn" env:"DSN"`
	Host     string        `yaml:"host" env:"HOST"`
	Port     int           `yaml:"port" env:"PORT" validate:"omitempty,min=1,max=65535"`
	User     string        `yaml:"user" env:"USER"`
	Password string        `yaml:"password" env:"PASSWORD"`
	Database string        `yaml:"database" env:"DATABASE"`
	Schema   string        `yaml:"schema" env:"SCHEMA"`
	Timeout  time.Duration `yaml:"timeout" env:"TIMEOUT"`

	// ========== DynamoDB ==========

	Region          string `yaml:"region" env:"REGION"`
	AccessKeyID     string `yaml:"access_key_id" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"SECRET_ACCESS_KEY"`
	Endpoint        string `yaml:"endpoint" env:"ENDPOINT" validate:"omitempty,url"`
}

// FilesConfig - загрузка файлов запросов с s3://
type FilesConfig struct {
	S3Region   string `yaml:"s3_region" env:"S3_REGION"`
	S3Endpoint string `yaml:"s3_endpoint" env:"S3_ENDPOINT" validate:"omitempty,url"`
}

// ResultLogConfig определяет публикацию результатов загрузки
// Позволяет оркестратору отслеживать состояния через Redis (GET/SUBSCRIBE) или Kafka
type ResultLogConfig struct {
	Type     string   `yaml:"type" validate:"omitempty,oneof=none redis kafka"` // пусто или none = отключено
	Address  string   `yaml:"address"`                                          // Redis: "127.0.0.1:6379"
	Brokers  []string `yaml:"brokers"`                                          // Kafka: ["localhost:9092"]
	Topic    string   `yaml:"topic"`                                            // Kafka topic
	Name     string   `yaml:"name"`                                             // Имя результата (ключ/канал/ключ сообщения)
	Password string   `yaml:"password"`
	DB       int      `yaml:"db" validate:"min=0"`
	TTL      int      `yaml:"ttl" validate:"min=0"` // TTL ключа Redis в секундах (по умолчанию 3600)
}

// Enabled сообщает, включена ли публикация
func (r ResultLogConfig) Enabled() bool {
	return r.Type != "" && r.Type != "none"
}

// LoadConfig загружает конфигурацию из YAML файла и переменных окружения
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse разбирает YAML, применяет переменные окружения и проверяет результат
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// applyEnv переопределяет поля из окружения:
// DEALER_LOG_*, DEALER_FILES_*, DEALER_<ИМЯ ХРАНИЛИЩА>_*
func (c *Config) applyEnv() error {
	if err := cenv.ParseWithOptions(&c.Log, cenv.Options{Prefix: EnvPrefix + "LOG_"}); err != nil {
		return err
	}
	if err := cenv.ParseWithOptions(&c.Files, cenv.Options{Prefix: EnvPrefix + "FILES_"}); err != nil {
		return err
	}

	for name, b := range c.Backends {
		if err := cenv.ParseWithOptions(&b, cenv.Options{Prefix: EnvPrefix + envName(name) + "_"}); err != nil {
			return fmt.Errorf("backend %s: %w", name, err)
		}
		c.Backends[name] = b
	}
	return nil
}

// envName: "data-warehouse" → "DATA_WAREHOUSE"
func envName(name string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(name))
}

// SetDefaults устанавливает значения по умолчанию
func (c *Config) SetDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.ResultLog.Enabled() {
		if c.ResultLog.TTL == 0 {
			c.ResultLog.TTL = 3600
		}
		if c.ResultLog.Name == "" {
			c.ResultLog.Name = c.Name
		}
	}
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}

	for _, name := range c.BackendNames() {
		b := c.Backends[name]
		if err := b.Validate(); err != nil {
			return fmt.Errorf("backend %s: %w", name, err)
		}
	}

	if err := c.ResultLog.Validate(); err != nil {
		return fmt.Errorf("result_log: %w", err)
	}
	return nil
}

// Validate проверяет то, что не выражается тегами
func (b *BackendConfig) Validate() error {
	switch b.Type {
	case "dynamodb":
		if (b.AccessKeyID == "") != (b.SecretAccessKey == "") {
			return fmt.Errorf("access_key_id and secret_access_key must be set together")
		}
	case "sqlite":
		if b.DSN == "" && b.Database == "" {
			return fmt.Errorf("dsn or database (file path) is required")
		}
	default:
		if b.DSN == "" && b.Host == "" {
			return fmt.Errorf("dsn or host is required for type '%s'", b.Type)
		}
	}
	return nil
}

// Validate проверяет корректность ResultLogConfig
func (r *ResultLogConfig) Validate() error {
	switch r.Type {
	case "", "none":
		return nil
	case "redis":
		if r.Address == "" {
			return fmt.Errorf("address is required when type is 'redis'")
		}
	case "kafka":
		if len(r.Brokers) == 0 {
			return fmt.Errorf("brokers are required when type is 'kafka'")
		}
		if r.Topic == "" {
			return fmt.Errorf("topic is required when type is 'kafka'")
		}
	}
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// BackendNames возвращает отсортированные имена хранилищ
func (c *Config) BackendNames() []string {
	names := make([]string, 0, len(c.Backends))
	for name := range c.Backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Backend возвращает хранилище по имени
func (c *Config) Backend(name string) (BackendConfig, error) {
	b, ok := c.Backends[name]
	if !ok {
		return BackendConfig{}, fmt.Errorf("backend %q is not configured (configured: %v)", name, c.BackendNames())
	}
	return b, nil
}

// ========== adapters.Config ==========

// AdapterConfig строит конфигурацию адаптера
func (b BackendConfig) AdapterConfig(logger *zerolog.Logger, loader files.Loader) adapters.Config {
	return adapters.Config{
		Type:            b.Type,
		DSN:             b.BuildDSN(),
		Schema:          b.Schema,
		Timeout:         b.Timeout,
		Region:          b.Region,
		AccessKeyID:     b.AccessKeyID,
		SecretAccessKey: b.SecretAccessKey,
		Endpoint:        b.Endpoint,
		Logger:          logger,
		Files:           loader,
	}
}

// BuildDSN возвращает DSN как есть или собирает его из частей
func (b BackendConfig) BuildDSN() string {
	if b.DSN != "" || b.Type == "dynamodb" {
		return b.DSN
	}

	switch b.Type {
	case "mssql":
		u := &url.URL{
			Scheme: "sqlserver",
			User:   url.UserPassword(b.User, b.Password),
			Host:   b.hostPort(1433),
		}
		if b.Database != "" {
			u.RawQuery = url.Values{"database": {b.Database}}.Encode()
		}
		return u.String()

	case "redshift", "postgres":
		port := 5432
		if b.Type == "redshift" {
			port = 5439
		}
		u := &url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(b.User, b.Password),
			Host:   b.hostPort(port),
			Path:   "/" + b.Database,
		}
		return u.String()

	case "mysql":
		mc := mysql.NewConfig()
		mc.User = b.User
		mc.Passwd = b.Password
		mc.Net = "tcp"
		mc.Addr = b.hostPort(3306)
		mc.DBName = b.Database
		return mc.FormatDSN()

	case "sqlite":
		return b.Database
	}
	return ""
}

func (b BackendConfig) hostPort(defaultPort int) string {
	port := b.Port
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(b.Host, strconv.Itoa(port))
}
