// Package base - общий движок реляционных адаптеров (MS SQL, Redshift, MySQL, SQLite)
//
// Конкретный адаптер описывает только свой Dialect и встраивает *SQLAdapter:
//
//	type Adapter struct {
//		*base.SQLAdapter
//	}
//
//	func NewAdapter() *Adapter {
//		return &Adapter{SQLAdapter: base.NewSQLAdapter(Dialect)}
//	}
//
// # Основные компоненты
//
// Dialect - драйвер, квотирование, плейсхолдеры, очистка таблицы, лимит параметров.
//
// Normalize/NormalizeDataset - приведение значений перед записью:
//   - целые и float → decimal.Decimal
//   - time.Time → "YYYY-MM-DD HH:MM:SS"
//
// BuildInsert - многострочные INSERT пачками до 1000 строк
// (или меньше, если не хватает параметров диалекта).
//
// SQLAdapter - Read/Write поверх sqlx:
//   - Read: запрос из ReadOptions.Query или файла ReadOptions.QueryFile
//   - Write append: INSERT + колонка insert_timestamp
//   - Write overwrite: TRUNCATE (запасной DELETE) + INSERT в одной транзакции
//   - Write merge/update: adapters.ErrUnsupportedOperation
package base
