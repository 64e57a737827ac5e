package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, rel string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("RIFF-test-audio"), 0644))
	return path
}

func writeManifest(t *testing.T, modulesDir, folder, body string) string {
	t.Helper()
	dir := filepath.Join(modulesDir, folder)
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, ManifestFileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func stemName(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
