package backup

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("INSERT INTO `workflow_entity` VALUES ('x');\n"), 500)

	for _, algorithm := range []Algorithm{AlgorithmGzip, AlgorithmLZ4, AlgorithmZstd} {
		t.Run(string(algorithm), func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, "dump.sql")
			dst := filepath.Join(dir, "dump.sql"+algorithm.Ext())
			require.NoError(t, os.WriteFile(src, payload, 0o600))

			stats, err := NewCompressor(algorithm, 0).CompressFile(src, dst)
			require.NoError(t, err)
			assert.Equal(t, int64(len(payload)), stats.OriginalSize)
			assert.Equal(t, algorithm, stats.Algorithm)
			assert.Less(t, stats.CompressedSize, stats.OriginalSize)

			size, err := CheckIntegrity(dst)
			require.NoError(t, err)
			assert.Equal(t, int64(len(payload)), size)

			restored := filepath.Join(dir, "restored.sql")
			require.NoError(t, DecompressFile(dst, restored))
			data, err := os.ReadFile(restored)
			require.NoError(t, err)
			assert.Equal(t, payload, data)
		})
	}
}

func TestCheckIntegrityCorruptStream(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.sql.gz")
	require.NoError(t, os.WriteFile(path, []byte("this is not a gzip stream"), 0o600))

	_, err := CheckIntegrity(path)
	require.Error(t, err)
	assert.Equal(t, ErrorKindCompression, KindOf(err))
}

func TestCheckIntegrityTruncatedStream(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "dump.sql")
	dst := filepath.Join(dir, "dump.sql.gz")
	require.NoError(t, os.WriteFile(src, bytes.Repeat([]byte("abcdefgh\n"), 10000), 0o600))

	_, err := NewCompressor(AlgorithmGzip, 0).CompressFile(src, dst)
	require.NoError(t, err)

	info, err := os.Stat(dst)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(dst, info.Size()/2))

	_, err = CheckIntegrity(dst)
	require.Error(t, err)
}

func TestAlgorithmForExt(t *testing.T) {
	for ext, want := range map[string]Algorithm{
		".gz":  AlgorithmGzip,
		".lz4": AlgorithmLZ4,
		".zst": AlgorithmZstd,
	} {
		got, err := AlgorithmForExt(ext)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := AlgorithmForExt(".bz2")
	require.Error(t, err)
	assert.Equal(t, ErrorKindCompression, KindOf(err))
}

func TestDecompressFileUnknownExtension(t *testing.T) {
	err := DecompressFile(filepath.Join(t.TempDir(), "dump.sql.rar"), filepath.Join(t.TempDir(), "out.sql"))
	require.Error(t, err)
	assert.Equal(t, ErrorKindCompression, KindOf(err))
}
