package base

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect описывает отличия SQL-хранилищ, которые важны движку записи:
// драйвер database/sql, квотирование, плейсхолдеры, очистку таблицы
type Dialect struct {
	// Name - тип хранилища в фабрике ("mssql", "redshift", ...)
	Name string
	// Label - имя хранилища в логах ("MSSQL", "Redshift", ...)
	Label string
	// Driver - имя драйвера database/sql
	Driver string

	QuoteOpen  string
	QuoteClose string

	// Placeholder возвращает плейсхолдер для n-го параметра (n с 1)
	Placeholder func(n int) string

	// TruncateTemplate - fmt-шаблон очистки таблицы, %s = имя таблицы
	TruncateTemplate string

	// Savepoints - очистка оборачивается в SAVEPOINT: после ошибки в
	// PostgreSQL транзакция прерывается (25P02), и без отката к точке
	// сохранения DELETE и INSERT тоже не пройдут
	Savepoints bool

	// MaxParams - предел параметров в одном statement
	MaxParams int

	// Decode - конвертация значений, специфичных для СУБД (nil = только общая)
	// dbType - DatabaseTypeName колонки в верхнем регистре
	Decode func(dbType string, v any) (any, bool)
}

// maxRowsPerInsert - предел строк в одном multi-row INSERT
const maxRowsPerInsert = 1000

// QuestionPlaceholder - "?" для MySQL и SQLite
func QuestionPlaceholder(int) string { return "?" }

// DollarPlaceholder - "$1", "$2", ... для PostgreSQL-совместимых
func DollarPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

// AtPPlaceholder - "@p1", "@p2", ... для SQL Server
func AtPPlaceholder(n int) string { return "@p" + strconv.Itoa(n) }

// QuoteIdentifier квотирует имя; "schema.table" квотируется по частям
func (d Dialect) QuoteIdentifier(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = d.quotePart(p)
	}
	return strings.Join(parts, ".")
}

// QuoteColumn квотирует имя колонки целиком (точка остается частью имени)
func (d Dialect) QuoteColumn(name string) string {
	return d.quotePart(name)
}

func (d Dialect) quotePart(p string) string {
	if d.QuoteOpen == "" {
		return p
	}
	escaped := strings.ReplaceAll(p, d.QuoteClose, d.QuoteClose+d.QuoteClose)
	return d.QuoteOpen + escaped + d.QuoteClose
}

// TruncateSQL - statement очистки таблицы
func (d Dialect) TruncateSQL(table string) string {
	tmpl := d.TruncateTemplate
	if tmpl == "" {
		tmpl = "TRUNCATE TABLE %s"
	}
	return fmt.Sprintf(tmpl, d.QuoteIdentifier(table))
}

// DeleteSQL - запасной вариант очистки, если TRUNCATE не прошел
func (d Dialect) DeleteSQL(table string) string {
	return "DELETE FROM " + d.QuoteIdentifier(table)
}

// FallbackSQL - очистка после неудачного TruncateSQL
// Пустая строка, если диалект и так чистит таблицу через DELETE
func (d Dialect) FallbackSQL(table string) string {
	del := d.DeleteSQL(table)
	if del == d.TruncateSQL(table) {
		return ""
	}
	return del
}

// RowsPerStatement - сколько строк помещается в один INSERT при ncols колонках
func (d Dialect) RowsPerStatement(ncols int) int {
	if ncols <= 0 {
		return maxRowsPerInsert
	}
	n := maxRowsPerInsert
	if d.MaxParams > 0 && d.MaxParams/ncols < n {
		n = d.MaxParams / ncols
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Validate проверяет, что диалект заполнен
func (d Dialect) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("dialect name is required")
	}
	if d.Driver == "" {
		return fmt.Errorf("dialect %s: driver is required", d.Name)
	}
	if d.Placeholder == nil {
		return fmt.Errorf("dialect %s: placeholder function is required", d.Name)
	}
	return nil
}

func (d Dialect) label() string {
	if d.Label != "" {
		return d.Label
	}
	return d.Name
}
