// Package sqlite - адаптер SQLite (modernc.org/sqlite, без CGO).
//
// Используется для локальных прогонов и тестов. В SQLite нет TRUNCATE,
// поэтому overwrite очищает таблицу через DELETE FROM.
// DSN - путь к файлу; ":memory:" бесполезен, так как соединение
// открывается заново на каждый Read/Write.
package sqlite

import (
	_ "modernc.org/sqlite" // регистрирует драйвер "sqlite"

	"github.com/ruslano69/dealer/pkg/adapters"
	"github.com/ruslano69/dealer/pkg/adapters/base"
)

// AdapterType - тип хранилища в фабрике
const AdapterType = "sqlite"

const driverSqlite = "sqlite"

// Dialect - диалект SQLite
var Dialect = base.Dialect{
	Name:             AdapterType,
	Label:            "SQLite",
	Driver:           driverSqlite,
	QuoteOpen:        `"`,
	QuoteClose:       `"`,
	Placeholder:      base.QuestionPlaceholder,
	TruncateTemplate: "DELETE FROM %s",
	MaxParams:        32766,
}

var _ adapters.Adapter = (*Adapter)(nil)

func init() {
	adapters.Register(AdapterType, func() adapters.Adapter {
		return NewAdapter()
	})
}

// Adapter - адаптер SQLite
type Adapter struct {
	*base.SQLAdapter
}

// NewAdapter создает неподключенный адаптер
func NewAdapter() *Adapter {
	return &Adapter{SQLAdapter: base.NewSQLAdapter(Dialect)}
}
