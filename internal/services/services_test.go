package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/tasktide/internal/database"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T, schemas ...database.Schema) *gorm.DB {
	t.Helper()

	db, err := database.Open(":memory:", database.Options{})
	require.NoError(t, err)
	for _, schema := range schemas {
		require.NoError(t, database.Migrate(db, schema))
	}
	t.Cleanup(func() {
		database.Close(db)
	})
	return db
}

func str(s string) *string { return &s }
