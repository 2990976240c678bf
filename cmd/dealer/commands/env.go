package commands

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/ruslano69/dealer/pkg/adapters"
	"github.com/ruslano69/dealer/pkg/config"
	"github.com/ruslano69/dealer/pkg/etl"
	"github.com/ruslano69/dealer/pkg/files"
	"github.com/ruslano69/dealer/pkg/logging"
	"github.com/ruslano69/dealer/pkg/resultlog"
	"github.com/ruslano69/dealer/pkg/security"
)

// env - окружение одной команды: конфигурация, логгер, загрузчик
// файлов запросов и publisher результатов
type env struct {
	cfg       *config.Config
	log       zerolog.Logger
	files     files.Loader
	publisher resultlog.Publisher
}

func newEnv(ctx context.Context, g *globalFlags) (*env, error) {
	cfg, err := config.LoadConfig(g.configPath)
	if err != nil {
		return nil, err
	}

	logOpts := logging.Options{Level: cfg.Log.Level, Console: cfg.Log.Console, Output: g.logOutput}
	if g.logLevel != "" {
		logOpts.Level = g.logLevel
	}
	if g.console {
		logOpts.Console = true
	}
	log := logging.New(logOpts)

	s3Loader, err := newS3Loader(ctx, cfg.Files)
	if err != nil {
		return nil, err
	}

	publisher, err := resultlog.New(cfg.ResultLog)
	if err != nil {
		return nil, err
	}

	return &env{
		cfg:       cfg,
		log:       log,
		files:     files.NewResolver(s3Loader),
		publisher: publisher,
	}, nil
}

// newS3Loader строит загрузчик s3:// из стандартной цепочки AWS
func newS3Loader(ctx context.Context, fc config.FilesConfig) (files.Loader, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if fc.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(fc.S3Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for s3: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if fc.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(fc.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return files.NewS3(client), nil
}

// open подключает хранилище по имени из конфигурации
// Возвращаемая функция закрывает адаптер
func (e *env) open(ctx context.Context, name string) (*etl.Loader, func(), error) {
	b, err := e.cfg.Backend(name)
	if err != nil {
		return nil, nil, err
	}

	log := e.log.With().Str("store", name).Logger()
	a, err := adapters.New(ctx, b.AdapterConfig(&log, e.files))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", name, err)
	}

	closeFn := func() {
		if err := a.Close(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to close adapter")
		}
	}
	return etl.NewLoader(a, &log, e.publisher), closeFn, nil
}

// guardQuery проверяет запрос чтения реляционного хранилища
// Текст из --query-file загружается здесь и передается адаптеру как Query
func (e *env) guardQuery(ctx context.Context, name string, rf *readFlags) error {
	b, err := e.cfg.Backend(name)
	if err != nil {
		return err
	}
	if rf.unsafe || b.Type == "dynamodb" {
		return nil
	}

	if rf.query == "" && rf.queryFile != "" {
		text, err := e.files.Load(ctx, rf.queryFile)
		if err != nil {
			return err
		}
		rf.query = text
	}
	if rf.query == "" {
		return nil
	}
	if err := security.ReadOnly(rf.query); err != nil {
		return fmt.Errorf("%w (use --unsafe to run it anyway)", err)
	}
	return nil
}

func (e *env) close() {
	if err := e.publisher.Close(); err != nil {
		e.log.Warn().Err(err).Msg("Failed to close result publisher")
	}
}
