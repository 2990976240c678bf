// dealer - перенос табличных данных между DynamoDB и реляционными
// хранилищами со стратегиями загрузки append, overwrite, merge, update.
package main

import (
	"os"

	"github.com/ruslano69/dealer/cmd/dealer/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
