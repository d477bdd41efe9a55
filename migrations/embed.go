// Package migrations embeds the door history schema into the binary and
// registers it with the database package. Import it for side effects.
package migrations

import (
	"embed"
	"io/fs"

	"github.com/nerrad567/gray-logic-doorsense/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

func init() {
	database.MigrationsFS = files
}

// Files returns the embedded migration files.
func Files() fs.FS {
	return files
}
