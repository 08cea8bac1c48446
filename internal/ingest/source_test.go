package ingest

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func writeZip(t *testing.T, name string, entries map[string][]byte, order ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, entry := range order {
		w, err := zw.Create(entry)
		require.NoError(t, err)
		_, err = w.Write(entries[entry])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestOpen_DecodesLatin1(t *testing.T) {
	// "AÇÃO" in ISO-8859-1
	path := writeFile(t, "ref.csv", []byte{'A', 0xC7, 0xC3, 'O', '\n'})

	src, err := Open(path, "latin1")
	require.NoError(t, err)
	defer src.Close()

	data, err := io.ReadAll(src)
	require.NoError(t, err)
	assert.Equal(t, "AÇÃO\n", string(data))
}

func TestOpen_UTF8PassesThrough(t *testing.T) {
	path := writeFile(t, "ref.csv", []byte("AÇÃO\n"))

	src, err := Open(path, "utf8")
	require.NoError(t, err)
	defer src.Close()

	data, err := io.ReadAll(src)
	require.NoError(t, err)
	assert.Equal(t, "AÇÃO\n", string(data))
}

func TestOpen_ReadsFirstArchiveEntry(t *testing.T) {
	path := writeZip(t, "Empresas0.zip", map[string][]byte{
		"K3241.EMPRECSV": []byte("first\n"),
		"other.txt":      []byte("second\n"),
	}, "K3241.EMPRECSV", "other.txt")

	src, err := Open(path, "utf8")
	require.NoError(t, err)
	defer src.Close()

	data, err := io.ReadAll(src)
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(data))
	assert.Contains(t, src.Name, "K3241.EMPRECSV")
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.csv"), "utf8")
	assert.Error(t, err)

	path := writeFile(t, "ref.csv", []byte("x\n"))
	_, err = Open(path, "ebcdic")
	assert.ErrorContains(t, err, "unsupported charset")

	empty := writeZip(t, "empty.zip", nil)
	_, err = Open(empty, "utf8")
	assert.ErrorContains(t, err, "no data file")
}
