package mssql

import (
	mssqldb "github.com/denisenkom/go-mssqldb" // регистрирует драйвер "sqlserver"

	"github.com/ruslano69/dealer/pkg/adapters"
	"github.com/ruslano69/dealer/pkg/adapters/base"
)

// AdapterType - тип хранилища в фабрике
const AdapterType = "mssql"

// maxParams - предел параметров одного запроса SQL Server (2100 минус запас)
const maxParams = 2000

// Dialect - диалект SQL Server: [ident], @pN, TRUNCATE TABLE
var Dialect = base.Dialect{
	Name:        AdapterType,
	Label:       "MSSQL",
	Driver:      "sqlserver",
	QuoteOpen:   "[",
	QuoteClose:  "]",
	Placeholder: base.AtPPlaceholder,
	MaxParams:   maxParams,
	Decode:      decodeValue,
}

// Adapter - адаптер MS SQL Server
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

// decodeValue конвертирует типы SQL Server, которые драйвер отдает как []byte
func decodeValue(dbType string, v any) (any, bool) {
	b, ok := v.([]byte)
	if !ok {
		return nil, false
	}

	switch dbType {
	case "UNIQUEIDENTIFIER":
		var id mssqldb.UniqueIdentifier
		if err := id.Scan(b); err != nil {
			return nil, false
		}
		return id.String(), true
	case "TIMESTAMP", "ROWVERSION":
		return rowversionHex(b), true
	}
	return nil, false
}
