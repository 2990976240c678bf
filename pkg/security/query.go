// Package security проверяет запросы чтения перед выполнением.
//
// Команды CLI по умолчанию выполняют только запросы чтения: SELECT или WITH,
// одна команда, без комментариев и без изменяющих ключевых слов.
// Флаг --unsafe отключает проверку.
package security

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrUnsafeQuery - запрос не является запросом только для чтения
var ErrUnsafeQuery = errors.New("unsafe query")

// forbidden - ключевые слова, запрещенные в запросе чтения
var forbidden = map[string]struct{}{
	// DML
	"INSERT": {}, "UPDATE": {}, "DELETE": {}, "TRUNCATE": {}, "MERGE": {}, "UPSERT": {}, "COPY": {}, "UNLOAD": {},
	// DDL
	"DROP": {}, "CREATE": {}, "ALTER": {}, "RENAME": {},
	// DCL
	"GRANT": {}, "REVOKE": {},
	// процедуры
	"EXECUTE": {}, "EXEC": {}, "CALL": {},
	// SQLite
	"PRAGMA": {}, "ATTACH": {}, "DETACH": {}, "VACUUM": {},
	// транзакции
	"BEGIN": {}, "COMMIT": {}, "ROLLBACK": {},
	// SELECT ... INTO создает таблицу (MS SQL, Redshift)
	"INTO": {},
}

// ReadOnly проверяет, что query - одиночный запрос чтения
// Строковые литералы и квотированные идентификаторы не проверяются:
// "SELECT 'DROP' AS word" допустим
func ReadOnly(query string) error {
	code, err := stripQuoted(query)
	if err != nil {
		return err
	}

	if strings.Contains(code, "--") {
		return fmt.Errorf("%w: SQL comments (--) are not allowed", ErrUnsafeQuery)
	}
	if strings.Contains(code, "/*") || strings.Contains(code, "*/") {
		return fmt.Errorf("%w: SQL comments (/* */) are not allowed", ErrUnsafeQuery)
	}

	trimmed := strings.TrimSpace(code)
	if i := strings.Index(trimmed, ";"); i >= 0 && i != len(trimmed)-1 {
		return fmt.Errorf("%w: multiple statements are not allowed", ErrUnsafeQuery)
	}

	words := strings.FieldsFunc(strings.ToUpper(trimmed), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	if len(words) == 0 {
		return fmt.Errorf("%w: empty query", ErrUnsafeQuery)
	}
	if words[0] != "SELECT" && words[0] != "WITH" {
		return fmt.Errorf("%w: only SELECT and WITH queries are allowed, got %s", ErrUnsafeQuery, words[0])
	}
	for _, w := range words[1:] {
		if _, ok := forbidden[w]; ok {
			return fmt.Errorf("%w: forbidden keyword %s", ErrUnsafeQuery, w)
		}
	}
	return nil
}

// stripQuoted заменяет содержимое '...', "...", `...` и [...] пробелами
// Удвоенная кавычка внутри литерала - экранирование
func stripQuoted(query string) (string, error) {
	var b strings.Builder
	b.Grow(len(query))

	runes := []rune(query)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		var closing rune
		switch r {
		case '\'', '"', '`':
			closing = r
		case '[':
			closing = ']'
		default:
			b.WriteRune(r)
			continue
		}

		j := i + 1
		for ; j < len(runes); j++ {
			if runes[j] != closing {
				continue
			}
			if closing != ']' && j+1 < len(runes) && runes[j+1] == closing {
				j++
				continue
			}
			break
		}
		if j >= len(runes) {
			return "", fmt.Errorf("%w: unterminated %c", ErrUnsafeQuery, r)
		}
		b.WriteString(" ")
		i = j
	}
	return b.String(), nil
}
