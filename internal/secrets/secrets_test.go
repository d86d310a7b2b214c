package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/birdobs/internal/errors"
)

func TestExpand(t *testing.T) {
	t.Setenv("BIRDOBS_TEST_USER", "survey")
	t.Setenv("BIRDOBS_TEST_PASS", "s3cret")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"empty", "", "", false},
		{"literal", "plain-password", "plain-password", false},
		{"single reference", "${BIRDOBS_TEST_PASS}", "s3cret", false},
		{"several references", "${BIRDOBS_TEST_USER}:${BIRDOBS_TEST_PASS}", "survey:s3cret", false},
		{"fallback unused", "${BIRDOBS_TEST_PASS:-other}", "s3cret", false},
		{"fallback used", "${BIRDOBS_TEST_UNSET:-other}", "other", false},
		{"empty fallback", "${BIRDOBS_TEST_UNSET:-}", "", false},
		{"missing", "${BIRDOBS_TEST_UNSET}", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
				assert.Contains(t, err.Error(), "BIRDOBS_TEST_UNSET")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	got, err := ReadFile(write("password", "hunter2\n"))
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)

	got, err = ReadFile(write("spaced", " keep spaces \r\n"))
	require.NoError(t, err)
	assert.Equal(t, " keep spaces ", got)

	_, err = ReadFile(write("empty", "\n"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))

	_, err = ReadFile(filepath.Join(dir, "missing"))
	require.Error(t, err)

	_, err = ReadFile(dir)
	require.Error(t, err)

	large := make([]byte, maxFileSize+1)
	for i := range large {
		large[i] = 'x'
	}
	_, err = ReadFile(write("large", string(large)))
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	t.Setenv("BIRDOBS_TEST_DB_PASS", "from-env")

	path := filepath.Join(t.TempDir(), "db_password")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))

	got, err := Resolve(path, "${BIRDOBS_TEST_DB_PASS}")
	require.NoError(t, err)
	assert.Equal(t, "from-file", got, "file takes precedence")

	got, err = Resolve("", "${BIRDOBS_TEST_DB_PASS}")
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)

	got, err = Resolve("", "")
	require.NoError(t, err)
	assert.Empty(t, got)
}
