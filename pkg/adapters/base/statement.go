package base

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ruslano69/dealer/pkg/dataset"
)

// InsertStatement - один multi-row INSERT с параметрами
type InsertStatement struct {
	SQL  string
	Args []any
	Rows int
}

// BuildInsert строит INSERT-ы для всего набора
// Колонки берутся в порядке ds.Columns(), отсутствующие в записи значения → NULL
// Строки разбиваются на пачки по d.RowsPerStatement
func BuildInsert(d Dialect, table string, ds *dataset.Dataset, kinds []Kind) []InsertStatement {
	cols := ds.Columns()
	if len(cols) == 0 || ds.Len() == 0 {
		return nil
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteColumn(c)
	}
	head := "INSERT INTO " + d.QuoteIdentifier(table) + " (" + strings.Join(quoted, ", ") + ") VALUES "

	per := d.RowsPerStatement(len(cols))
	stmts := make([]InsertStatement, 0, (ds.Len()+per-1)/per)

	for start := 0; start < ds.Len(); start += per {
		end := start + per
		if end > ds.Len() {
			end = ds.Len()
		}

		var sb strings.Builder
		sb.WriteString(head)
		args := make([]any, 0, (end-start)*len(cols))
		n := 0

		for i := start; i < end; i++ {
			if i > start {
				sb.WriteString(", ")
			}
			sb.WriteByte('(')
			row := ds.Row(i)
			for j, c := range cols {
				if j > 0 {
					sb.WriteString(", ")
				}
				n++
				sb.WriteString(d.Placeholder(n))
				args = append(args, bindValue(row[c], kinds, j))
			}
			sb.WriteByte(')')
		}

		stmts = append(stmts, InsertStatement{SQL: sb.String(), Args: args, Rows: end - start})
	}

	return stmts
}

// bindValue приводит значение к классу колонки
// Числовая строка в числовой колонке становится decimal
func bindValue(v any, kinds []Kind, j int) any {
	if v == nil {
		return nil
	}
	if j < len(kinds) && kinds[j] == KindNumeric {
		if s, ok := v.(string); ok {
			if dec, err := decimal.NewFromString(s); err == nil {
				return dec
			}
		}
	}
	return v
}
