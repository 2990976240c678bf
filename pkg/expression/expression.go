// Package expression строит привязки плейсхолдеров для частичного обновления
// атрибутов: из спецификации ключа ("id,sk") и спецификации выражения
// ("status=new_status,count=new_count").
package expression

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ruslano69/dealer/pkg/dataset"
)

// ErrInvalidSpec - ошибка разбора спецификации ключа или выражения
var ErrInvalidSpec = errors.New("invalid key/expression spec")

// Binding - одна пара выражения и ее синтетические имена
type Binding struct {
	Target      string // атрибут в хранилище
	Source      string // колонка в записи
	Placeholder string // ":a", ":b", ... - плейсхолдер значения
	Alias       string // "#a", "#b", ... - плейсхолдер имени атрибута
}

// Expression - разобранные спецификации ключа и выражения
type Expression struct {
	Keys     []string
	Bindings []Binding
}

// Build разбирает спецификации и назначает плейсхолдеры в порядке пар
func Build(keySpec, exprSpec string) (*Expression, error) {
	if strings.TrimSpace(keySpec) == "" {
		return nil, fmt.Errorf("%w: key spec is empty", ErrInvalidSpec)
	}
	if strings.TrimSpace(exprSpec) == "" {
		return nil, fmt.Errorf("%w: expression spec is empty", ErrInvalidSpec)
	}

	keys, err := splitNames(keySpec)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(exprSpec, ",")
	bindings := make([]Binding, 0, len(parts))
	targets := make(map[string]struct{}, len(parts))

	for i, part := range parts {
		target, source, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a column=value pair", ErrInvalidSpec, part)
		}
		target = strings.TrimSpace(target)
		source = strings.TrimSpace(source)
		if target == "" || source == "" {
			return nil, fmt.Errorf("%w: %q has an empty side", ErrInvalidSpec, part)
		}
		if _, dup := targets[target]; dup {
			return nil, fmt.Errorf("%w: attribute %q is set twice", ErrInvalidSpec, target)
		}
		targets[target] = struct{}{}

		name := placeholderName(i)
		bindings = append(bindings, Binding{
			Target:      target,
			Source:      source,
			Placeholder: ":" + name,
			Alias:       "#" + name,
		})
	}

	return &Expression{Keys: keys, Bindings: bindings}, nil
}

func splitNames(spec string) ([]string, error) {
	parts := strings.Split(spec, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("%w: empty column in %q", ErrInvalidSpec, spec)
		}
		names = append(names, p)
	}
	return names, nil
}

// placeholderName возвращает имя в биективной 26-ричной системе:
// 0 → "a", 25 → "z", 26 → "aa", 27 → "ab", ...
// Имена уникальны для любого количества пар
func placeholderName(i int) string {
	var buf []byte
	for n := i + 1; n > 0; n = (n - 1) / 26 {
		buf = append([]byte{byte('a' + (n-1)%26)}, buf...)
	}
	return string(buf)
}

// TargetPlaceholders возвращает карту атрибут → плейсхолдер (для SET)
func (e *Expression) TargetPlaceholders() map[string]string {
	m := make(map[string]string, len(e.Bindings))
	for _, b := range e.Bindings {
		m[b.Target] = b.Placeholder
	}
	return m
}

// SourcePlaceholders возвращает карту колонка → плейсхолдер (для значений)
// Если одна колонка питает несколько атрибутов, остается первый плейсхолдер;
// Values все равно заполняет каждый плейсхолдер
func (e *Expression) SourcePlaceholders() map[string]string {
	m := make(map[string]string, len(e.Bindings))
	for _, b := range e.Bindings {
		if _, ok := m[b.Source]; !ok {
			m[b.Source] = b.Placeholder
		}
	}
	return m
}

// SetClause строит "SET #a = :a, #b = :b"
func (e *Expression) SetClause() string {
	parts := make([]string, len(e.Bindings))
	for i, b := range e.Bindings {
		parts[i] = b.Alias + " = " + b.Placeholder
	}
	return "SET " + strings.Join(parts, ", ")
}

// Names возвращает карту алиас → имя атрибута
func (e *Expression) Names() map[string]string {
	m := make(map[string]string, len(e.Bindings))
	for _, b := range e.Bindings {
		m[b.Alias] = b.Target
	}
	return m
}

// Values возвращает карту плейсхолдер → значение колонки из записи
func (e *Expression) Values(rec dataset.Record) map[string]any {
	m := make(map[string]any, len(e.Bindings))
	for _, b := range e.Bindings {
		m[b.Placeholder] = rec[b.Source]
	}
	return m
}

// Key возвращает значения ключевых колонок записи
func (e *Expression) Key(rec dataset.Record) map[string]any {
	m := make(map[string]any, len(e.Keys))
	for _, k := range e.Keys {
		m[k] = rec[k]
	}
	return m
}

// Columns возвращает все колонки записи, на которые ссылаются спецификации
func (e *Expression) Columns() []string {
	cols := make([]string, 0, len(e.Keys)+len(e.Bindings))
	cols = append(cols, e.Keys...)
	for _, b := range e.Bindings {
		cols = append(cols, b.Source)
	}
	return cols
}

// Validate проверяет, что ключ и источники выражения есть среди колонок набора
func (e *Expression) Validate(ds *dataset.Dataset) error {
	if missing, ok := ds.HasColumns(e.Columns()...); !ok {
		return fmt.Errorf("%w: column %q is not in the dataset", ErrInvalidSpec, missing)
	}
	return nil
}
