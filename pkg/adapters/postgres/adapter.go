// Package postgres - адаптер PostgreSQL на общем реляционном движке.
//
// Регистрируется под типом "postgres"; в отличие от Redshift очищает
// таблицу через TRUNCATE TABLE, который в PostgreSQL транзакционен.
// Неудачный TRUNCATE откатывается к точке сохранения, после чего
// выполняется DELETE FROM в той же транзакции.
package postgres

import (
	_ "github.com/jackc/pgx/v5/stdlib" // регистрирует драйвер "pgx"

	"github.com/ruslano69/dealer/pkg/adapters"
	"github.com/ruslano69/dealer/pkg/adapters/base"
	"github.com/ruslano69/dealer/pkg/adapters/redshift"
)

// AdapterType - тип хранилища в фабрике
const AdapterType = "postgres"

// Dialect - диалект PostgreSQL
var Dialect = base.Dialect{
	Name:        AdapterType,
	Label:       "PostgreSQL",
	Driver:      "pgx",
	QuoteOpen:   `"`,
	QuoteClose:  `"`,
	Placeholder: base.DollarPlaceholder,
	Savepoints:  true,
	MaxParams:   65535,
	Decode:      redshift.DecodeNumeric,
}

// Compile-time check: Adapter должен реализовывать интерфейс adapters.Adapter
var _ adapters.Adapter = (*Adapter)(nil)

func init() {
	adapters.Register(AdapterType, func() adapters.Adapter {
		return NewAdapter()
	})
}

// Adapter - адаптер PostgreSQL
type Adapter struct {
	*base.SQLAdapter
}

// NewAdapter создает неподключенный адаптер
func NewAdapter() *Adapter {
	return &Adapter{SQLAdapter: base.NewSQLAdapter(Dialect)}
}
