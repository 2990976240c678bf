// Package dataset содержит табличное представление данных, которое движок
// перемещает между хранилищами: упорядоченные колонки и упорядоченные записи.
package dataset

import (
	"slices"
	"sort"
)

// Record - одна запись: имя колонки → скалярное значение
// Допустимые значения: целые, float, decimal.Decimal, string, time.Time, bool, nil
type Record map[string]any

// Dataset - упорядоченный набор записей с общим набором колонок
// Порядок записей сохраняется от чтения до записи
type Dataset struct {
	columns []string
	rows    []Record
}

// New создает Dataset с заданными колонками и записями
// Записи не копируются
func New(columns []string, rows ...Record) *Dataset {
	return &Dataset{
		columns: slices.Clone(columns),
		rows:    rows,
	}
}

// FromRecords строит Dataset из списка map
// Колонки - объединение ключей всех записей; ключи каждой записи берутся
// в алфавитном порядке, новые колонки добавляются в порядке появления
func FromRecords(records []map[string]any) *Dataset {
	ds := &Dataset{rows: make([]Record, 0, len(records))}
	seen := make(map[string]struct{})

	for _, rec := range records {
		keys := make([]string, 0, len(rec))
		for k := range rec {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				ds.columns = append(ds.columns, k)
			}
		}
		ds.rows = append(ds.rows, Record(rec))
	}

	return ds
}

// Columns возвращает копию списка колонок
func (d *Dataset) Columns() []string {
	return slices.Clone(d.columns)
}

// HasColumns сообщает, содержит ли Dataset все перечисленные колонки
// Возвращает первую отсутствующую колонку
func (d *Dataset) HasColumns(names ...string) (string, bool) {
	for _, name := range names {
		if !slices.Contains(d.columns, name) {
			return name, false
		}
	}
	return "", true
}

// Len возвращает количество записей
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Rows возвращает записи в исходном порядке
func (d *Dataset) Rows() []Record {
	return d.rows
}

// Row возвращает запись по индексу
func (d *Dataset) Row(i int) Record {
	return d.rows[i]
}

// Values возвращает значения i-й записи в порядке колонок
// Отсутствующие значения возвращаются как nil
func (d *Dataset) Values(i int) []any {
	row := d.rows[i]
	values := make([]any, len(d.columns))
	for j, col := range d.columns {
		values[j] = row[col]
	}
	return values
}

// Append добавляет запись; новые ключи записи становятся колонками
func (d *Dataset) Append(rec Record) {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		if !slices.Contains(d.columns, k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	d.columns = append(d.columns, keys...)
	d.rows = append(d.rows, rec)
}

// Truncate оставляет первые n записей
func (d *Dataset) Truncate(n int) {
	if n >= 0 && n < len(d.rows) {
		d.rows = d.rows[:n]
	}
}

// SetColumn присваивает значение колонке во всех записях
// Колонка добавляется в конец списка, если ее еще нет
func (d *Dataset) SetColumn(name string, value any) {
	if !slices.Contains(d.columns, name) {
		d.columns = append(d.columns, name)
	}
	for _, row := range d.rows {
		row[name] = value
	}
}

// Clone возвращает глубокую копию на уровне записей (значения не копируются)
func (d *Dataset) Clone() *Dataset {
	rows := make([]Record, len(d.rows))
	for i, row := range d.rows {
		cp := make(Record, len(row))
		for k, v := range row {
			cp[k] = v
		}
		rows[i] = cp
	}
	return &Dataset{columns: slices.Clone(d.columns), rows: rows}
}

// Records возвращает записи как список map (для сериализации)
func (d *Dataset) Records() []map[string]any {
	out := make([]map[string]any, len(d.rows))
	for i, row := range d.rows {
		out[i] = map[string]any(row)
	}
	return out
}
