package base

import (
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ruslano69/dealer/pkg/dataset"
)

// TimestampLayout - формат, в который превращаются все метки времени
const TimestampLayout = "2006-01-02 15:04:05"

// NormalizeValue конвертирует значение в вид, который принимают хранилища:
//   - целые и float → decimal.Decimal (точная десятичная запись)
//   - time.Time → строка "YYYY-MM-DD HH:MM:SS"
//   - остальное (включая NaN/Inf) → без изменений
func NormalizeValue(v any) any {
	switch x := v.(type) {
	case int:
		return decimal.NewFromInt(int64(x))
	case int8:
		return decimal.NewFromInt(int64(x))
	case int16:
		return decimal.NewFromInt(int64(x))
	case int32:
		return decimal.NewFromInt(int64(x))
	case int64:
		return decimal.NewFromInt(x)
	case uint:
		return decimal.RequireFromString(strconv.FormatUint(uint64(x), 10))
	case uint8:
		return decimal.NewFromInt(int64(x))
	case uint16:
		return decimal.NewFromInt(int64(x))
	case uint32:
		return decimal.NewFromInt(int64(x))
	case uint64:
		return decimal.RequireFromString(strconv.FormatUint(x, 10))
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return v
		}
		return decimal.NewFromFloat32(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return v
		}
		// NewFromFloat берет кратчайшую десятичную запись: 19.99 → 19.99
		return decimal.NewFromFloat(x)
	case time.Time:
		return x.Format(TimestampLayout)
	case *time.Time:
		if x == nil {
			return nil
		}
		return x.Format(TimestampLayout)
	default:
		return v
	}
}

// Normalize возвращает новую запись с нормализованными значениями
func Normalize(rec dataset.Record) dataset.Record {
	out := make(dataset.Record, len(rec))
	for k, v := range rec {
		out[k] = NormalizeValue(v)
	}
	return out
}

// NormalizeDataset нормализует каждую запись; исходный набор не меняется
func NormalizeDataset(ds *dataset.Dataset) *dataset.Dataset {
	rows := make([]dataset.Record, ds.Len())
	for i, row := range ds.Rows() {
		rows[i] = Normalize(row)
	}
	return dataset.New(ds.Columns(), rows...)
}

// Kind - класс значений колонки для построения INSERT
type Kind int

const (
	// KindText - строки, даты и все прочее
	KindText Kind = iota
	// KindNumeric - целые, float, decimal
	KindNumeric
)

// String - строковое представление класса
func (k Kind) String() string {
	if k == KindNumeric {
		return "numeric"
	}
	return "text"
}

// KindOf классифицирует одно значение
func KindOf(v any) Kind {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, decimal.Decimal:
		return KindNumeric
	default:
		return KindText
	}
}

// ColumnKinds определяет класс каждой колонки один раз на запись
// по первому не-nil значению; колонка без значений считается текстовой
// Предполагается однородная типизация колонки по всему набору
func ColumnKinds(ds *dataset.Dataset) []Kind {
	cols := ds.Columns()
	kinds := make([]Kind, len(cols))
	for j, col := range cols {
		for _, row := range ds.Rows() {
			if v, ok := row[col]; ok && v != nil {
				kinds[j] = KindOf(v)
				break
			}
		}
	}
	return kinds
}
