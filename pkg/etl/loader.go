// Package etl - фронт движка загрузки: разбирает имя стратегии, вызывает
// адаптер, собирает статистику и публикует результат через resultlog.
package etl

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ruslano69/dealer/pkg/adapters"
	"github.com/ruslano69/dealer/pkg/dataset"
	"github.com/ruslano69/dealer/pkg/logging"
	"github.com/ruslano69/dealer/pkg/resultlog"
)

// Операции в публикуемых результатах
const (
	OpRead     = "read"
	OpWrite    = "write"
	OpTransfer = "transfer"
)

// WriteResult - статистика одной записи
type WriteResult struct {
	RunID    string
	Backend  string
	Target   string
	Strategy adapters.LoadStrategy
	Rows     int
	Started  time.Time
	Finished time.Time

	// Skipped - стратегия не распознана, адаптер не вызывался
	Skipped bool

	Err error
}

// Duration возвращает длительность записи
func (r WriteResult) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Loader выполняет чтение и запись через один адаптер
type Loader struct {
	adapter   adapters.Adapter
	log       zerolog.Logger
	publisher resultlog.Publisher
	now       func() time.Time
	newID     func() string
}

// NewLoader создает Loader поверх подключенного адаптера
// publisher == nil отключает публикацию
func NewLoader(adapter adapters.Adapter, logger *zerolog.Logger, publisher resultlog.Publisher) *Loader {
	if publisher == nil {
		publisher = resultlog.Nop{}
	}
	return &Loader{
		adapter:   adapter,
		log:       logging.OrNop(logger).With().Str("backend", adapter.Type()).Logger(),
		publisher: publisher,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// SetClock подменяет источник времени (для тестов)
func (l *Loader) SetClock(now func() time.Time) {
	l.now = now
}

// Adapter возвращает адаптер
func (l *Loader) Adapter() adapters.Adapter {
	return l.adapter
}

// Write применяет ds к target по стратегии strategyName
//
// Нераспознанное имя стратегии не является ошибкой: сообщение пишется
// с уровнем critical, возвращается результат с Rows == 0 и Skipped == true.
// Ошибки адаптера возвращаются как есть и сохраняются в WriteResult.Err.
func (l *Loader) Write(ctx context.Context, ds *dataset.Dataset, target, strategyName string, opts adapters.WriteOptions) (WriteResult, error) {
	res := l.write(ctx, ds, target, strategyName, opts)
	l.publish(ctx, OpWrite, res)
	return res, res.Err
}

func (l *Loader) write(ctx context.Context, ds *dataset.Dataset, target, strategyName string, opts adapters.WriteOptions) (res WriteResult) {
	res = WriteResult{
		RunID:    l.newID(),
		Backend:  l.adapter.Type(),
		Target:   target,
		Strategy: adapters.LoadStrategy(strategyName),
		Started:  l.now(),
	}
	defer func() { res.Finished = l.now() }()

	log := l.log.With().Str("run_id", res.RunID).Str("target", target).Str("strategy", strategyName).Logger()

	strategy, err := adapters.ParseStrategy(strategyName)
	if err != nil {
		logging.Critical(log).Err(err).Msg("Unrecognized load strategy, nothing written")
		res.Skipped = true
		return res
	}

	rows, err := l.adapter.Write(ctx, ds, target, strategy, opts)
	res.Rows = rows
	if err != nil {
		log.Error().Err(err).Int("rows", rows).Msg("Load failed")
		res.Err = err
		return res
	}

	log.Info().Int("rows", rows).Msg("Load complete")
	return res
}

// Read читает target в Dataset и публикует результат чтения
func (l *Loader) Read(ctx context.Context, target string, opts adapters.ReadOptions) (*dataset.Dataset, error) {
	started := l.now()
	ds, err := l.adapter.Read(ctx, target, opts)

	res := WriteResult{
		RunID:    l.newID(),
		Backend:  l.adapter.Type(),
		Target:   target,
		Started:  started,
		Finished: l.now(),
		Err:      err,
	}
	if ds != nil {
		res.Rows = ds.Len()
	}
	if err != nil {
		l.log.Error().Err(err).Str("target", target).Msg("Read failed")
	}
	l.publish(ctx, OpRead, res)
	return ds, err
}

// TransferOptions - параметры переноса между хранилищами
type TransferOptions struct {
	// Source - таблица источника и опции чтения
	Source string
	Read   adapters.ReadOptions

	// Target - таблица приемника, стратегия и опции записи
	Target   string
	Strategy string
	Write    adapters.WriteOptions
}

// Transfer читает из src и записывает в dst одной операцией
// Результат публикуется через publisher приемника
func Transfer(ctx context.Context, src, dst *Loader, opts TransferOptions) (WriteResult, error) {
	started := dst.now()

	defer logging.Bracket(dst.log,
		"Starting transfer from "+src.adapter.Type()+" "+opts.Source,
		"Transfer complete")()

	ds, err := src.adapter.Read(ctx, opts.Source, opts.Read)
	if err != nil {
		res := WriteResult{
			RunID:    dst.newID(),
			Backend:  dst.adapter.Type(),
			Target:   opts.Target,
			Strategy: adapters.LoadStrategy(opts.Strategy),
			Started:  started,
			Finished: dst.now(),
			Err:      err,
		}
		dst.log.Error().Err(err).Str("source", opts.Source).Msg("Transfer read failed")
		dst.publish(ctx, OpTransfer, res)
		return res, err
	}
	src.log.Info().Str("source", opts.Source).Int("rows", ds.Len()).Msg("Transfer read complete")

	res := dst.write(ctx, ds, opts.Target, opts.Strategy, opts.Write)
	res.Started = started
	dst.publish(ctx, OpTransfer, res)
	return res, res.Err
}

// publish отправляет результат; ошибка публикации только логируется
func (l *Loader) publish(ctx context.Context, op string, res WriteResult) {
	rec := resultlog.Result{
		RunID:      res.RunID,
		Operation:  op,
		Backend:    res.Backend,
		Target:     res.Target,
		Strategy:   string(res.Strategy),
		StartedAt:  res.Started,
		FinishedAt: res.Finished,
		DurationMs: res.Duration().Milliseconds(),
		Rows:       res.Rows,
	}
	if res.Skipped {
		rec.Status = resultlog.StatusSkipped
	}
	rec.SetError(res.Err)

	if err := l.publisher.Publish(ctx, rec); err != nil {
		l.log.Warn().Err(err).Str("run_id", res.RunID).Msg("Failed to publish load result")
	}
}
