package base

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/ruslano69/dealer/pkg/adapters"
	"github.com/ruslano69/dealer/pkg/dataset"
	"github.com/ruslano69/dealer/pkg/files"
	"github.com/ruslano69/dealer/pkg/logging"
)

// InsertTimestampColumn - колонка, которую движок добавляет при append/overwrite
const InsertTimestampColumn = "insert_timestamp"

// SQLAdapter - общий движок реляционных адаптеров поверх database/sql + sqlx
//
// Соединение открывается на каждый Read/Write и закрывается после него;
// Connect только запоминает конфигурацию и проверяет доступность хранилища.
type SQLAdapter struct {
	dialect Dialect
	cfg     adapters.Config
	log     zerolog.Logger
	files   files.Loader
	now     func() time.Time
}

// NewSQLAdapter создает движок для диалекта
func NewSQLAdapter(d Dialect) *SQLAdapter {
	return &SQLAdapter{
		dialect: d,
		log:     zerolog.Nop(),
		files:   files.Local{},
		now:     time.Now,
	}
}

// Type реализует adapters.Adapter
func (a *SQLAdapter) Type() string {
	return a.dialect.Name
}

// Dialect возвращает диалект движка
func (a *SQLAdapter) Dialect() Dialect {
	return a.dialect
}

// SetClock подменяет источник времени для insert_timestamp
func (a *SQLAdapter) SetClock(now func() time.Time) {
	a.now = now
}

// Connect реализует adapters.Adapter
func (a *SQLAdapter) Connect(ctx context.Context, cfg adapters.Config) error {
	if err := a.dialect.Validate(); err != nil {
		return adapters.Configuration("%v", err)
	}
	if cfg.DSN == "" {
		return adapters.Configuration("%s: dsn is required", a.dialect.Name)
	}

	a.cfg = cfg
	a.log = logging.OrNop(cfg.Logger).With().Str("backend", a.dialect.Name).Logger()
	if cfg.Files != nil {
		a.files = cfg.Files
	}

	db, err := a.open(ctx)
	if err != nil {
		return err
	}
	return db.Close()
}

// Close реализует adapters.Adapter; постоянных соединений нет
func (a *SQLAdapter) Close(ctx context.Context) error {
	return nil
}

// open открывает и проверяет новое соединение
func (a *SQLAdapter) open(ctx context.Context) (*sqlx.DB, error) {
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	db, err := sqlx.ConnectContext(ctx, a.dialect.Driver, a.cfg.DSN)
	if err != nil {
		return nil, adapters.NewBackendError(a.dialect.Name, "connect", err)
	}
	return db, nil
}

// ========== Read ==========

// Read выполняет SQL-запрос и возвращает строки в порядке колонок результата
// Запрос берется из opts.Query, иначе из opts.QueryFile
func (a *SQLAdapter) Read(ctx context.Context, target string, opts adapters.ReadOptions) (*dataset.Dataset, error) {
	query, err := a.resolveQuery(ctx, opts)
	if err != nil {
		return nil, err
	}

	label := a.dialect.label()
	defer logging.Bracket(a.log, "Starting read from "+label, label+" read complete")()

	db, err := a.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	a.log.Debug().Str("query", query).Msg("Executing SQL Query")

	rows, err := db.QueryxContext(ctx, query)
	if err != nil {
		return nil, adapters.NewBackendError(a.dialect.Name, "query", err)
	}
	defer rows.Close()

	ds, err := a.scanRows(rows, opts.Limit)
	if err != nil {
		return nil, err
	}

	a.log.Info().Str("target", target).Int("records", ds.Len()).
		Msgf("%s query produced %d results", label, ds.Len())
	return ds, nil
}

func (a *SQLAdapter) resolveQuery(ctx context.Context, opts adapters.ReadOptions) (string, error) {
	if opts.Query != "" {
		return opts.Query, nil
	}
	if opts.QueryFile == "" {
		a.log.Error().Msg("Need a query or a query file to read from " + a.dialect.label())
		return "", adapters.Configuration("%s read requires a query or a query file", a.dialect.Name)
	}

	query, err := a.files.Load(ctx, opts.QueryFile)
	if err != nil {
		return "", fmt.Errorf("failed to load query file: %w", err)
	}
	if strings.TrimSpace(query) == "" {
		return "", adapters.Configuration("query file %s is empty", opts.QueryFile)
	}
	return query, nil
}

func (a *SQLAdapter) scanRows(rows *sqlx.Rows, limit int) (*dataset.Dataset, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, adapters.NewBackendError(a.dialect.Name, "query", err)
	}

	dbTypes := make([]string, len(cols))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			dbTypes[i] = strings.ToUpper(ct.DatabaseTypeName())
		}
	}

	ds := dataset.New(cols)
	for rows.Next() {
		if limit > 0 && ds.Len() >= limit {
			break
		}

		m := make(map[string]any, len(cols))
		if err := rows.MapScan(m); err != nil {
			return nil, adapters.NewBackendError(a.dialect.Name, "scan", err)
		}

		rec := make(dataset.Record, len(m))
		for i, c := range cols {
			rec[c] = a.decode(dbTypes[i], m[c])
		}
		ds.Append(rec)
	}
	if err := rows.Err(); err != nil {
		return nil, adapters.NewBackendError(a.dialect.Name, "query", err)
	}
	return ds, nil
}

// decode приводит значение драйвера к значению записи
func (a *SQLAdapter) decode(dbType string, v any) any {
	if a.dialect.Decode != nil {
		if out, ok := a.dialect.Decode(dbType, v); ok {
			return out
		}
	}

	b, ok := v.([]byte)
	if !ok {
		return v
	}
	switch dbType {
	case "BINARY", "VARBINARY", "BLOB", "BYTEA", "IMAGE", "LONGBLOB", "MEDIUMBLOB", "TINYBLOB":
		return fmt.Sprintf("%X", b)
	}
	return string(b)
}

// ========== Write ==========

// Write реализует adapters.Adapter
//
//	append    - INSERT всех записей + insert_timestamp
//	overwrite - TRUNCATE (при ошибке DELETE) + INSERT, в одной транзакции
//	merge, update - ErrUnsupportedOperation
//
// Ошибка INSERT логируется, транзакция откатывается, возвращается 0 без ошибки
func (a *SQLAdapter) Write(ctx context.Context, ds *dataset.Dataset, target string, strategy adapters.LoadStrategy, opts adapters.WriteOptions) (int, error) {
	label := a.dialect.label()

	switch strategy {
	case adapters.StrategyAppend, adapters.StrategyOverwrite:
	case adapters.StrategyMerge, adapters.StrategyUpdate:
		a.log.Error().Str("strategy", string(strategy)).Msgf("%s strategy is not implemented for %s", strategy, label)
		return 0, adapters.Unsupported(a.dialect.Name, strategy)
	default:
		logging.Critical(a.log).Str("strategy", string(strategy)).Msg("Unrecognized load strategy")
		return 0, nil
	}

	if target == "" {
		return 0, adapters.Configuration("%s write requires a table name", a.dialect.Name)
	}
	if ds != nil && len(ds.Columns()) == 0 && ds.Len() > 0 {
		return 0, adapters.Configuration("%s write requires a dataset with columns", a.dialect.Name)
	}
	if ds == nil || (strategy == adapters.StrategyAppend && ds.Len() == 0) {
		a.log.Info().Str("table", target).Msg("Nothing to append")
		return 0, nil
	}

	defer logging.Bracket(a.log,
		fmt.Sprintf("Starting %q write to %s", strategy, label),
		fmt.Sprintf("%s %s complete", label, strategy))()

	table := a.qualify(target)
	stamped := NormalizeDataset(ds)
	stamped.SetColumn(InsertTimestampColumn, a.now().Format(TimestampLayout))
	stmts := BuildInsert(a.dialect, table, stamped, ColumnKinds(stamped))

	db, err := a.open(ctx)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, adapters.NewBackendError(a.dialect.Name, "begin", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if strategy == adapters.StrategyOverwrite {
		a.truncate(ctx, tx, table)
	}

	n, err := a.insert(ctx, tx, stmts)
	if err != nil {
		a.log.Error().Err(err).Str("table", target).Msg("Error inserting records, rolling back")
		return 0, nil
	}

	if err := tx.Commit(); err != nil {
		return 0, adapters.NewBackendError(a.dialect.Name, "commit", err)
	}
	committed = true

	a.log.Info().Str("table", target).Int("records", n).
		Msgf("Wrote %d records to %s table: %s", n, label, target)
	return n, nil
}

// qualify добавляет схему из конфигурации к неквалифицированному имени
func (a *SQLAdapter) qualify(table string) string {
	if a.cfg.Schema == "" || strings.Contains(table, ".") {
		return table
	}
	return a.cfg.Schema + "." + table
}

// truncateSavepoint - точка сохранения вокруг очистки таблицы
const truncateSavepoint = "dealer_truncate"

// truncate очищает таблицу; ошибки логируются и не прерывают запись
func (a *SQLAdapter) truncate(ctx context.Context, tx *sqlx.Tx, table string) {
	savepoint := a.dialect.Savepoints
	if savepoint {
		if _, err := tx.ExecContext(ctx, "SAVEPOINT "+truncateSavepoint); err != nil {
			a.log.Warn().Err(err).Msg("Error creating savepoint, truncating without it")
			savepoint = false
		}
	}

	_, err := tx.ExecContext(ctx, a.dialect.TruncateSQL(table))
	if err == nil {
		if savepoint {
			_, _ = tx.ExecContext(ctx, "RELEASE SAVEPOINT "+truncateSavepoint)
		}
		return
	}

	if savepoint {
		if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+truncateSavepoint); err != nil {
			a.log.Error().Err(err).Msg("Error rolling back to savepoint")
		}
	}

	fallback := a.dialect.FallbackSQL(table)
	if fallback == "" {
		a.log.Error().Err(err).Str("table", table).Msg("Error truncating table")
		return
	}
	a.log.Error().Err(err).Str("table", table).Msg("Error truncating table, falling back to DELETE")

	if _, err := tx.ExecContext(ctx, fallback); err != nil {
		a.log.Error().Err(err).Str("table", table).Msg("Error deleting rows from table")
	}
}

func (a *SQLAdapter) insert(ctx context.Context, tx *sqlx.Tx, stmts []InsertStatement) (int, error) {
	total := 0
	for i, st := range stmts {
		if i == 0 {
			a.log.Debug().Int("statements", len(stmts)).Str("query", firstRow(st.SQL)).Msg("Executing SQL Query")
		}

		res, err := tx.ExecContext(ctx, st.SQL, st.Args...)
		if err != nil {
			return 0, fmt.Errorf("statement %d/%d: %w", i+1, len(stmts), err)
		}
		total += affected(res, st.Rows)
	}
	return total, nil
}

func affected(res sql.Result, fallback int) int {
	n, err := res.RowsAffected()
	if err != nil || n < 0 {
		return fallback
	}
	return int(n)
}

// firstRow обрезает INSERT до первой группы VALUES для лога
func firstRow(stmt string) string {
	if i := strings.Index(stmt, "), ("); i >= 0 {
		return stmt[:i+1] + ", ..."
	}
	return stmt
}
