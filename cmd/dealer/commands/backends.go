package commands

// Регистрация адаптеров в фабрике
import (
	_ "github.com/ruslano69/dealer/pkg/adapters/dynamo"
	_ "github.com/ruslano69/dealer/pkg/adapters/mssql"
	_ "github.com/ruslano69/dealer/pkg/adapters/mysql"
	_ "github.com/ruslano69/dealer/pkg/adapters/postgres"
	_ "github.com/ruslano69/dealer/pkg/adapters/redshift"
	_ "github.com/ruslano69/dealer/pkg/adapters/sqlite"
)
