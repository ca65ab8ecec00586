package file_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iotp2c/ditto-twin/pkg/file"
)

func TestFileService_WriteAndRead(t *testing.T) {
	fs := file.NewFileService()
	path := filepath.Join(t.TempDir(), "client.crt")

	exists, err := fs.IsFileExists(path)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, fs.WriteFileRaw(path, []byte("cert")))

	exists, err = fs.IsFileExists(path)
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := fs.ReadFileRaw(path)
	require.NoError(t, err)
	assert.Equal(t, "cert", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileService_ReadYamlFile(t *testing.T) {
	fs := file.NewFileService()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("namespace: org.Iotp2c\nport: 8080\n"), 0600))

	var v struct {
		Namespace string `yaml:"namespace"`
		Port      int    `yaml:"port"`
	}
	require.NoError(t, fs.ReadYamlFile(path, &v))
	assert.Equal(t, "org.Iotp2c", v.Namespace)
	assert.Equal(t, 8080, v.Port)
}

func TestFileService_ReadYamlFile_Missing(t *testing.T) {
	fs := file.NewFileService()
	var v map[string]any
	err := fs.ReadYamlFile(filepath.Join(t.TempDir(), "missing.yaml"), &v)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileService_WriteFileRaw_CreatesDeviceDirectory(t *testing.T) {
	fs := file.NewFileService()
	path := filepath.Join(t.TempDir(), "certs", "iwatch1", "client.key")

	require.NoError(t, fs.WriteFileRaw(path, []byte("key")))

	data, err := fs.ReadFileRaw(path)
	require.NoError(t, err)
	assert.Equal(t, "key", string(data))

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}
