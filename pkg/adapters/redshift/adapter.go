package redshift

import (
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // регистрирует драйвер "pgx"
	"github.com/shopspring/decimal"

	"github.com/ruslano69/dealer/pkg/adapters"
	"github.com/ruslano69/dealer/pkg/adapters/base"
)

// AdapterType - тип хранилища в фабрике
const AdapterType = "redshift"

// Dialect - диалект Redshift: "ident", $N
// TRUNCATE в Redshift неявно фиксирует транзакцию, поэтому overwrite
// очищает таблицу через DELETE внутри той же транзакции
var Dialect = base.Dialect{
	Name:             AdapterType,
	Label:            "Redshift",
	Driver:           "pgx",
	QuoteOpen:        `"`,
	QuoteClose:       `"`,
	Placeholder:      base.DollarPlaceholder,
	TruncateTemplate: "DELETE FROM %s",
	MaxParams:        32767,
	Decode:           DecodeNumeric,
}

// Adapter - адаптер Amazon Redshift (протокол PostgreSQL)
// Поддерживает append и overwrite; merge и update не реализованы
type Adapter struct {
	*base.SQLAdapter
}

var _ adapters.Adapter = (*Adapter)(nil)

func init() {
	adapters.Register(AdapterType, func() adapters.Adapter {
		return NewAdapter()
	})
}

// NewAdapter создает неподключенный адаптер
func NewAdapter() *Adapter {
	return &Adapter{SQLAdapter: base.NewSQLAdapter(Dialect)}
}

// DecodeNumeric читает NUMERIC/DECIMAL как decimal.Decimal
// Драйвер отдает их текстом, чтобы не терять точность
func DecodeNumeric(dbType string, v any) (any, bool) {
	if dbType != "NUMERIC" && dbType != "DECIMAL" {
		return nil, false
	}

	var s string
	switch x := v.(type) {
	case string:
		s = x
	case []byte:
		s = string(x)
	default:
		return nil, false
	}

	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, false
	}
	return d, true
}
