package dynamo

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"

	"github.com/ruslano69/dealer/pkg/adapters"
	"github.com/ruslano69/dealer/pkg/adapters/base"
	"github.com/ruslano69/dealer/pkg/dataset"
	"github.com/ruslano69/dealer/pkg/expression"
	"github.com/ruslano69/dealer/pkg/logging"
	"github.com/ruslano69/dealer/pkg/retry"
)

// AdapterType - тип хранилища в фабрике
const AdapterType = "dynamodb"

// DefaultRegion - регион, если не задан в конфигурации
const DefaultRegion = "us-east-1"

// Client - операции DynamoDB, которые использует адаптер
// Реализуется *dynamodb.Client и тестовыми заглушками
type Client interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Adapter - адаптер DynamoDB
// Поддерживает merge (batch put) и update (UpdateItem); append и overwrite не реализованы
type Adapter struct {
	client Client
	log    zerolog.Logger
	retry  retry.Config
}

var _ adapters.Adapter = (*Adapter)(nil)

func init() {
	adapters.Register(AdapterType, func() adapters.Adapter {
		return NewAdapter()
	})
}

// NewAdapter создает адаптер; клиент строится в Connect
func NewAdapter() *Adapter {
	return &Adapter{
		log:   zerolog.Nop(),
		retry: retry.UnprocessedItemsConfig(),
	}
}

// NewWithClient создает адаптер поверх готового клиента
func NewWithClient(client Client, logger *zerolog.Logger) *Adapter {
	a := NewAdapter()
	a.client = client
	a.log = logging.OrNop(logger).With().Str("backend", AdapterType).Logger()
	return a
}

// SetRetry задает повтор UnprocessedItems
func (a *Adapter) SetRetry(cfg retry.Config) {
	a.retry = cfg
}

// Type реализует adapters.Adapter
func (a *Adapter) Type() string {
	return AdapterType
}

// Connect строит клиента DynamoDB из конфигурации
// Если клиент уже задан через NewWithClient, только обновляет логгер
func (a *Adapter) Connect(ctx context.Context, cfg adapters.Config) error {
	if cfg.Logger != nil {
		a.log = cfg.Logger.With().Str("backend", AdapterType).Logger()
	}
	if a.client != nil {
		return nil
	}

	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, awsconfig.WithHTTPClient(
			awshttp.NewBuildableClient().WithTimeout(cfg.Timeout),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return adapters.NewBackendError(AdapterType, "connect", err)
	}

	a.client = dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	a.log.Debug().Str("region", region).Str("endpoint", cfg.Endpoint).Msg("DynamoDB client ready")
	return nil
}

// Close реализует adapters.Adapter; HTTP-клиент не требует закрытия
func (a *Adapter) Close(ctx context.Context) error {
	return nil
}

// ========== Read ==========

// Read сканирует таблицу целиком, следуя LastEvaluatedKey
// opts.Query - ProjectionExpression; opts.QueryKind (query mode) не поддерживается
// Если после очередной страницы записей больше opts.Limit, пагинация
// останавливается, результат обрезается до opts.Limit
func (a *Adapter) Read(ctx context.Context, target string, opts adapters.ReadOptions) (*dataset.Dataset, error) {
	if opts.QueryKind != "" {
		a.log.Error().Str("query_kind", opts.QueryKind).Msg("DynamoDB query mode is not implemented, use scan")
		return nil, fmt.Errorf("%w: dynamodb query mode %q", adapters.ErrUnsupportedOperation, opts.QueryKind)
	}
	if target == "" {
		return nil, adapters.Configuration("dynamodb read requires a table name")
	}
	if a.client == nil {
		return nil, adapters.Configuration("dynamodb adapter is not connected")
	}

	defer logging.Bracket(a.log, "Starting read from DynamoDB", "DynamoDB read complete")()

	items, err := a.scanAll(ctx, target, opts)
	if err != nil {
		return nil, err
	}

	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		rec, err := fromItem(item)
		if err != nil {
			return nil, fmt.Errorf("failed to decode dynamodb item: %w", err)
		}
		records = append(records, rec)
	}

	ds := dataset.FromRecords(records)
	if opts.Limit > 0 {
		ds.Truncate(opts.Limit)
	}

	a.log.Info().Str("table", target).Int("records", ds.Len()).
		Msgf("DynamoDB scan produced %d results", ds.Len())
	return ds, nil
}

func (a *Adapter) scanAll(ctx context.Context, table string, opts adapters.ReadOptions) ([]map[string]types.AttributeValue, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(table)}
	if q := strings.TrimSpace(opts.Query); q != "" {
		input.ProjectionExpression = aws.String(q)
	}

	var items []map[string]types.AttributeValue
	for page := 1; ; page++ {
		out, err := a.client.Scan(ctx, input)
		if err != nil {
			return nil, adapters.NewBackendError(AdapterType, "scan", err)
		}
		items = append(items, out.Items...)
		a.log.Debug().Int("page", page).Int("items", len(out.Items)).Msg("Scan page")

		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		if opts.Limit > 0 && len(items) > opts.Limit {
			logging.Critical(a.log).Int("items", len(items)).Int("limit", opts.Limit).
				Msg("Scan exceeded the record limit, stopping pagination")
			return items, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// ========== Write ==========

// Write реализует adapters.Adapter
//
//	merge  - put каждой записи через batchWriter (last-write-wins)
//	update - UpdateItem на каждую запись по opts.Key и opts.Expression
//	overwrite - ErrUnsupportedOperation
//	append - в DynamoDB нет отличия от merge: critical в лог, запись не выполняется
func (a *Adapter) Write(ctx context.Context, ds *dataset.Dataset, target string, strategy adapters.LoadStrategy, opts adapters.WriteOptions) (int, error) {
	switch strategy {
	case adapters.StrategyMerge, adapters.StrategyUpdate:
	case adapters.StrategyOverwrite:
		a.log.Error().Str("strategy", string(strategy)).Msg("overwrite strategy is not implemented for DynamoDB, use merge")
		return 0, adapters.Unsupported(AdapterType, strategy)
	case adapters.StrategyAppend:
		logging.Critical(a.log).Str("strategy", string(strategy)).
			Msgf("Load type %q is not supported. Current types of load: merge, update", strategy)
		return 0, nil
	default:
		logging.Critical(a.log).Str("strategy", string(strategy)).Msg("Unrecognized load strategy")
		return 0, nil
	}

	if target == "" {
		return 0, adapters.Configuration("dynamodb write requires a table name")
	}

	var expr *expression.Expression
	if strategy == adapters.StrategyUpdate {
		var err error
		if expr, err = expression.Build(opts.Key, opts.Expression); err != nil {
			a.log.Error().Err(err).Msg("Need a key and an expression to update DynamoDB")
			return 0, fmt.Errorf("%w: %w", adapters.ErrConfiguration, err)
		}
	}

	if ds == nil || ds.Len() == 0 {
		a.log.Info().Str("table", target).Msg("Nothing to write")
		return 0, nil
	}

	if strategy == adapters.StrategyUpdate {
		return a.update(ctx, ds, target, expr)
	}
	return a.merge(ctx, ds, target, opts)
}

func (a *Adapter) merge(ctx context.Context, ds *dataset.Dataset, table string, opts adapters.WriteOptions) (int, error) {
	if a.client == nil {
		return 0, adapters.Configuration("dynamodb adapter is not connected")
	}

	var keys []string
	if opts.Key != "" {
		for _, k := range strings.Split(opts.Key, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
		if missing, ok := ds.HasColumns(keys...); !ok {
			return 0, adapters.Configuration("key column %q is not in the dataset", missing)
		}
	}

	defer logging.Bracket(a.log, `Starting "merge" write to DynamoDB`, "DynamoDB merge complete")()

	normalized := base.NormalizeDataset(ds)
	written, err := withBatchWriter(ctx, a.client, table, keys, a.retry, a.log, func(w *batchWriter) error {
		for i, rec := range normalized.Rows() {
			item, err := toAttributeMap(rec)
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			if err := w.Put(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		a.log.Error().Err(err).Str("table", table).Msg("Error writing batch to DynamoDB")
		return written, err
	}

	a.log.Info().Str("table", table).Int("records", written).
		Msgf("Wrote %d records to DynamoDB table: %s", written, table)
	return written, nil
}

func (a *Adapter) update(ctx context.Context, ds *dataset.Dataset, table string, expr *expression.Expression) (int, error) {
	if err := expr.Validate(ds); err != nil {
		return 0, fmt.Errorf("%w: %w", adapters.ErrConfiguration, err)
	}
	if a.client == nil {
		return 0, adapters.Configuration("dynamodb adapter is not connected")
	}

	defer logging.Bracket(a.log, `Starting "update" write to DynamoDB`, "DynamoDB update complete")()

	setClause := expr.SetClause()
	names := expr.Names()
	a.log.Debug().Str("update_expression", setClause).Msg("Built update expression")

	updated := 0
	for i, rec := range base.NormalizeDataset(ds).Rows() {
		key, err := toAttributeMap(expr.Key(rec))
		if err != nil {
			return updated, fmt.Errorf("record %d key: %w", i, err)
		}
		values, err := toAttributeMap(expr.Values(rec))
		if err != nil {
			return updated, fmt.Errorf("record %d values: %w", i, err)
		}

		_, err = a.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 aws.String(table),
			Key:                       key,
			UpdateExpression:          aws.String(setClause),
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		})
		if err != nil {
			a.log.Error().Err(err).Int("record", i).Str("table", table).Msg("Error updating item")
			return updated, adapters.NewBackendError(AdapterType, "update_item", err)
		}
		updated++
	}

	a.log.Info().Str("table", table).Int("records", updated).
		Msgf("Updated %d records in DynamoDB table: %s", updated, table)
	return updated, nil
}
