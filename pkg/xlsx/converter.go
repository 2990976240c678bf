// Package xlsx конвертирует Dataset в лист Excel и обратно.
//
// Заголовки имеют формат "имя (ТИП)", тип определяется по первому
// непустому значению колонки: INTEGER, DECIMAL, BOOLEAN, TIMESTAMP, TEXT.
// При чтении тип из заголовка задает Go-тип значений.
package xlsx

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ruslano69/dealer/pkg/dataset"
)

// FieldType - тип колонки в заголовке листа
type FieldType string

const (
	TypeInteger   FieldType = "INTEGER"
	TypeDecimal   FieldType = "DECIMAL"
	TypeBoolean   FieldType = "BOOLEAN"
	TypeTimestamp FieldType = "TIMESTAMP"
	TypeText      FieldType = "TEXT"
)

const defaultSheet = "Sheet1"

// ToXLSX - сохранить Dataset в XLSX файл
//
// Пример:
//
//	err := xlsx.ToXLSX(ds, "output.xlsx", "Orders")
func ToXLSX(ds *dataset.Dataset, filePath string, sheetName string) error {
	f, err := build(ds, sheetName)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(filePath)
}

// Write - записать Dataset как XLSX в w (например, os.Stdout)
func Write(w io.Writer, ds *dataset.Dataset, sheetName string) error {
	f, err := build(ds, sheetName)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteTo(w)
	return err
}

func build(ds *dataset.Dataset, sheetName string) (*excelize.File, error) {
	f := excelize.NewFile()

	if sheetName == "" {
		sheetName = defaultSheet
	}
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if sheetName != defaultSheet {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to delete default sheet: %w", err)
		}
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	columns := ds.Columns()
	types := columnTypes(ds)
	styles := cellStyles(f, types)

	for col, name := range columns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheetName, cell, fmt.Sprintf("%s (%s)", name, types[col]))
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx := 0; rowIdx < ds.Len(); rowIdx++ {
		for col, v := range ds.Values(rowIdx) {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err := f.SetCellValue(sheetName, cell, toExcel(v)); err != nil {
				f.Close()
				return nil, fmt.Errorf("row %d column %s: %w", rowIdx, columns[col], err)
			}
			if style, ok := styles[types[col]]; ok {
				f.SetCellStyle(sheetName, cell, cell, style)
			}
		}
	}

	for col := range columns {
		colName, _ := excelize.ColumnNumberToName(col + 1)
		f.SetColWidth(sheetName, colName, colName, 15)
	}

	return f, nil
}

// FromXLSX - прочитать лист XLSX файла в Dataset
// Пустое имя листа означает первый лист
//
// Пример:
//
//	ds, err := xlsx.FromXLSX("input.xlsx", "Orders")
func FromXLSX(filePath string, sheetName string) (*dataset.Dataset, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return readSheet(f, sheetName)
}

// Read - прочитать XLSX из r в Dataset
func Read(r io.Reader, sheetName string) (*dataset.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return readSheet(f, sheetName)
}

func readSheet(f *excelize.File, sheetName string) (*dataset.Dataset, error) {
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}

	// Сырые значения: форматы ячеек не должны округлять числа
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q has no header row", sheetName)
	}

	headerRow := rows[0]
	columns := make([]string, len(headerRow))
	types := make([]FieldType, len(headerRow))
	for i, header := range headerRow {
		columns[i], types[i] = parseHeader(header)
		if columns[i] == "" {
			return nil, fmt.Errorf("column %d has an empty header", i+1)
		}
	}

	records := make([]dataset.Record, 0, len(rows)-1)
	for rowIdx := 1; rowIdx < len(rows); rowIdx++ {
		dataRow := rows[rowIdx]
		rec := make(dataset.Record, len(columns))
		for col, name := range columns {
			raw := ""
			if col < len(dataRow) {
				raw = dataRow[col]
			}
			v, err := convertFromExcel(raw, types[col])
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", rowIdx+1, name, err)
			}
			rec[name] = v
		}
		records = append(records, rec)
	}

	return dataset.New(columns, records...), nil
}

// parseHeader - разобрать заголовок "имя (ТИП)"; без типа колонка текстовая
func parseHeader(header string) (string, FieldType) {
	header = strings.TrimSpace(header)
	if idx := strings.LastIndex(header, "("); idx > 0 {
		if end := strings.LastIndex(header, ")"); end > idx {
			name := strings.TrimSpace(header[:idx])
			switch t := FieldType(strings.ToUpper(strings.TrimSpace(header[idx+1 : end]))); t {
			case TypeInteger, TypeDecimal, TypeBoolean, TypeTimestamp, TypeText:
				return name, t
			}
		}
	}
	return header, TypeText
}

// columnTypes - тип каждой колонки по первому непустому значению
func columnTypes(ds *dataset.Dataset) []FieldType {
	columns := ds.Columns()
	types := make([]FieldType, len(columns))
	for j, col := range columns {
		types[j] = TypeText
		for _, row := range ds.Rows() {
			if v, ok := row[col]; ok && v != nil {
				types[j] = typeOf(v)
				break
			}
		}
	}
	return types
}

func typeOf(v any) FieldType {
	switch x := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInteger
	case decimal.Decimal:
		if x.Exponent() >= 0 {
			return TypeInteger
		}
		return TypeDecimal
	case float32, float64:
		return TypeDecimal
	case bool:
		return TypeBoolean
	case time.Time, *time.Time:
		return TypeTimestamp
	default:
		return TypeText
	}
}

// toExcel - значение для excelize
// decimal пишется числом, если float64 передает его точно, иначе строкой
func toExcel(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		f := x.InexactFloat64()
		if decimal.NewFromFloat(f).Equal(x) {
			return f
		}
		return x.String()
	case []byte:
		return string(x)
	default:
		return v
	}
}

// convertFromExcel - сырое значение ячейки в Go-значение по типу колонки
// Пустая ячейка → nil
func convertFromExcel(value string, fieldType FieldType) (any, error) {
	if value == "" {
		return nil, nil
	}

	switch fieldType {
	case TypeInteger:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n, nil
		}
		// Excel хранит целые как float: "42" или "4.2E+1"
		d, err := decimal.NewFromString(value)
		if err != nil || !d.IsInteger() {
			return nil, fmt.Errorf("invalid integer %q", value)
		}
		return d.IntPart(), nil

	case TypeDecimal:
		d, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("invalid decimal %q", value)
		}
		return d, nil

	case TypeBoolean:
		switch strings.ToUpper(value) {
		case "1", "TRUE":
			return true, nil
		case "0", "FALSE":
			return false, nil
		}
		return nil, fmt.Errorf("invalid boolean %q", value)

	case TypeTimestamp:
		if serial, err := strconv.ParseFloat(value, 64); err == nil {
			t, err := excelize.ExcelDateToTime(serial, false)
			if err != nil {
				return nil, err
			}
			// серийная дата точна до миллисекунд
			return t.Round(time.Millisecond), nil
		}
		for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, value); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("invalid timestamp %q", value)
	}

	return value, nil
}

// cellStyles - стили ячеек по типам колонок (встроенные форматы Excel)
// DECIMAL и BOOLEAN остаются в формате General
func cellStyles(f *excelize.File, types []FieldType) map[FieldType]int {
	numFmts := map[FieldType]int{
		TypeInteger:   1,  // 0
		TypeTimestamp: 22, // m/d/yy h:mm
		TypeText:      49, // @
	}
	styles := make(map[FieldType]int)
	for _, t := range types {
		numFmt, ok := numFmts[t]
		if !ok {
			continue
		}
		if _, done := styles[t]; done {
			continue
		}
		if id, err := f.NewStyle(&excelize.Style{NumFmt: numFmt}); err == nil {
			styles[t] = id
		}
	}
	return styles
}
