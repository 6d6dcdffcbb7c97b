package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) func() {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	return func() { _ = os.Chdir(old) }
}

func TestEnsureDir_CreatesRelativeToCWD(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	got, err := EnsureDir("cache/images")
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(filepath.Join(tmp, "cache", "images"))
	require.NoError(t, err)
	gotResolved, err := filepath.EvalSymlinks(got)
	require.NoError(t, err)
	require.Equal(t, want, gotResolved)

	fi, err := os.Stat(got)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		perm := fi.Mode().Perm()
		require.Equal(t, os.FileMode(0o700), perm&0o700)
	}
}

func TestEnsureDir_Idempotent(t *testing.T) {
	tmp := t.TempDir()

	first, err := EnsureDir(filepath.Join(tmp, "cache"))
	require.NoError(t, err)

	second, err := EnsureDir(filepath.Join(tmp, "cache"))
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestEnsureDir_FailsIfFileWithSameNameExists(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "cache")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o660))

	_, err := EnsureDir(p)
	require.Error(t, err, "should fail when a file exists with the same name")
}

func TestEnsureFileDir(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "data", "fieldsync.db")

	got, err := EnsureFileDir(p)
	require.NoError(t, err)
	require.Equal(t, p, got)

	fi, err := os.Stat(filepath.Join(tmp, "data"))
	require.NoError(t, err)
	require.True(t, fi.IsDir())

	_, err = os.Stat(p)
	require.True(t, os.IsNotExist(err), "the file itself is not created")
}
