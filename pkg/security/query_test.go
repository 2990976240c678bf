package security

import (
	"errors"
	"strings"
	"testing"
)

func TestReadOnly(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		wantErr bool
		errMsg  string
	}{
		// Разрешенные запросы
		{name: "Simple SELECT", sql: "SELECT * FROM users"},
		{name: "SELECT with WHERE", sql: "select id, name from users where age > 18"},
		{name: "SELECT with semicolon at end", sql: "SELECT * FROM users;"},
		{name: "WITH (CTE) query", sql: "WITH t AS (SELECT id FROM users) SELECT * FROM t"},
		{name: "Column named like keyword", sql: "SELECT deleted_at, updated_by FROM users"},
		{name: "Keyword inside literal", sql: "SELECT * FROM log WHERE msg = 'DROP TABLE users; --'"},
		{name: "Escaped quote", sql: "SELECT * FROM t WHERE name = 'O''Brien'"},
		{name: "Quoted identifier", sql: `SELECT "update" FROM "order"`},
		{name: "Bracket identifier", sql: "SELECT [Delete] FROM [dbo].[Orders]"},

		// Запрещенные
		{name: "INSERT", sql: "INSERT INTO users VALUES (1)", wantErr: true, errMsg: "got INSERT"},
		{name: "Leading spaces DELETE", sql: "   delete from users", wantErr: true, errMsg: "got DELETE"},
		{name: "Stacked statement", sql: "SELECT 1; DROP TABLE users", wantErr: true, errMsg: "multiple statements"},
		{name: "Line comment", sql: "SELECT * FROM users -- hide", wantErr: true, errMsg: "(--)"},
		{name: "Block comment", sql: "SELECT /* x */ 1", wantErr: true, errMsg: "(/* */)"},
		{name: "SELECT INTO", sql: "SELECT * INTO backup FROM users", wantErr: true, errMsg: "forbidden keyword INTO"},
		{name: "Function call", sql: "SELECT EXEC(1)", wantErr: true, errMsg: "forbidden keyword EXEC"},
		{name: "CTE with DELETE", sql: "WITH d AS (DELETE FROM t RETURNING *) SELECT * FROM d", wantErr: true, errMsg: "DELETE"},
		{name: "Empty", sql: "   ", wantErr: true, errMsg: "empty query"},
		{name: "Unterminated literal", sql: "SELECT 'abc", wantErr: true, errMsg: "unterminated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ReadOnly(tt.sql)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadOnly(%q) error = %v, wantErr %v", tt.sql, err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if !errors.Is(err, ErrUnsafeQuery) {
				t.Errorf("error %v is not ErrUnsafeQuery", err)
			}
			if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.errMsg)
			}
		})
	}
}
