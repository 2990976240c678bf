// Package mysql - адаптер MySQL на общем реляционном движке.
//
// DSN в формате go-sql-driver: user:pass@tcp(host:3306)/dbname.
// Параметр parseTime не нужен: метки времени пишутся строками.
package mysql

import (
	_ "github.com/go-sql-driver/mysql" // регистрирует драйвер "mysql"

	"github.com/ruslano69/dealer/pkg/adapters"
	"github.com/ruslano69/dealer/pkg/adapters/base"
)

// AdapterType - тип хранилища в фабрике
const AdapterType = "mysql"

// Dialect - диалект MySQL: `ident`, ?
// TRUNCATE в MySQL неявно фиксирует транзакцию, поэтому overwrite
// очищает таблицу через DELETE, который откатывается вместе с INSERT
var Dialect = base.Dialect{
	Name:             AdapterType,
	Label:            "MySQL",
	Driver:           "mysql",
	QuoteOpen:        "`",
	QuoteClose:       "`",
	Placeholder:      base.QuestionPlaceholder,
	TruncateTemplate: "DELETE FROM %s",
	MaxParams:        65535,
}

var _ adapters.Adapter = (*Adapter)(nil)

func init() {
	adapters.Register(AdapterType, func() adapters.Adapter {
		return NewAdapter()
	})
}

// Adapter - адаптер MySQL
type Adapter struct {
	*base.SQLAdapter
}

// NewAdapter создает неподключенный адаптер
func NewAdapter() *Adapter {
	return &Adapter{SQLAdapter: base.NewSQLAdapter(Dialect)}
}
