package migrations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionOf(t *testing.T) {
	assert.Equal(t, "001", versionOf("migrations/001_init.sql"))
	assert.Equal(t, "002", versionOf("002_add_roadmap_questions.sql"))
	assert.Equal(t, "003", versionOf("003"))
}

func TestPendingFiles_SortedSQLOnly(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_b.sql", "001_a.sql", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "010_dir.sql"), 0o700))

	files, err := PendingFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "001_a.sql"), filepath.Join(dir, "002_b.sql")}, files)

	_, err = PendingFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
