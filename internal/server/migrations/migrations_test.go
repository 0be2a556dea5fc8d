package migrations

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDir(t *testing.T) {
	assert.Equal(t, "postgres", Dir("pgx"))
	assert.Equal(t, "postgres", Dir("postgres"))
	assert.Equal(t, "sqlite", Dir("sqlite3"))
	assert.Equal(t, "sqlite", Dir("sqlite"))
}

func TestEveryDialectHasTheSameVersions(t *testing.T) {
	pg, err := fs.Glob(Migrations, "postgres/*.sql")
	require.NoError(t, err)
	lite, err := fs.Glob(Migrations, "sqlite/*.sql")
	require.NoError(t, err)

	require.NotEmpty(t, pg)
	require.Len(t, lite, len(pg))
	for i := range pg {
		assert.Equal(t, pg[i][len("postgres/"):], lite[i][len("sqlite/"):])
	}
}
