package backup

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm is a single-stream compression algorithm for database dumps.
type Algorithm string

const (
	AlgorithmGzip Algorithm = "gzip"
	AlgorithmLZ4  Algorithm = "lz4"
	AlgorithmZstd Algorithm = "zstd"
)

// Ext returns the file extension for the algorithm.
func (a Algorithm) Ext() string {
	switch a {
	case AlgorithmLZ4:
		return ".lz4"
	case AlgorithmZstd:
		return ".zst"
	default:
		return ".gz"
	}
}

// AlgorithmForExt resolves an artifact extension back to its algorithm.
func AlgorithmForExt(ext string) (Algorithm, error) {
	switch ext {
	case ".gz":
		return AlgorithmGzip, nil
	case ".lz4":
		return AlgorithmLZ4, nil
	case ".zst":
		return AlgorithmZstd, nil
	}
	return "", NewCompressionError(fmt.Sprintf("unknown compressed extension %q", ext), nil)
}

// CompressionStats describes one compression run for the manifest.
type CompressionStats struct {
	OriginalSize   int64         `json:"original_size" yaml:"original_size"`
	CompressedSize int64         `json:"compressed_size" yaml:"compressed_size"`
	Algorithm      Algorithm     `json:"algorithm" yaml:"algorithm"`
	Duration       time.Duration `json:"duration" yaml:"duration"`
}

// Compressor compresses and decompresses dump files as streams; dumps can
// exceed memory so nothing is buffered whole.
type Compressor struct {
	algorithm Algorithm
	level     int
}

// NewCompressor creates a compressor. A zero level selects the algorithm's
// default.
func NewCompressor(algorithm Algorithm, level int) *Compressor {
	return &Compressor{algorithm: algorithm, level: level}
}

// Algorithm returns the configured algorithm.
func (c *Compressor) Algorithm() Algorithm {
	return c.algorithm
}

func (c *Compressor) writer(dst io.Writer) (io.WriteCloser, error) {
	switch c.algorithm {
	case AlgorithmGzip:
		if c.level == 0 {
			return gzip.NewWriter(dst), nil
		}
		w, err := gzip.NewWriterLevel(dst, c.level)
		if err != nil {
			return nil, NewCompressionError("failed to create gzip writer", err)
		}
		return w, nil
	case AlgorithmLZ4:
		w := lz4.NewWriter(dst)
		if c.level > 6 {
			if err := w.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
				return nil, NewCompressionError("failed to configure lz4 writer", err)
			}
		}
		return w, nil
	case AlgorithmZstd:
		w, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(c.level)))
		if err != nil {
			return nil, NewCompressionError("failed to create zstd writer", err)
		}
		return w, nil
	}
	return nil, NewCompressionError(fmt.Sprintf("unsupported compression algorithm %q", c.algorithm), nil)
}

func newReader(algorithm Algorithm, src io.Reader) (io.ReadCloser, error) {
	switch algorithm {
	case AlgorithmGzip:
		r, err := gzip.NewReader(src)
		if err != nil {
			return nil, NewCompressionError("failed to open gzip stream", err)
		}
		return r, nil
	case AlgorithmLZ4:
		return io.NopCloser(lz4.NewReader(src)), nil
	case AlgorithmZstd:
		r, err := zstd.NewReader(src)
		if err != nil {
			return nil, NewCompressionError("failed to open zstd stream", err)
		}
		return io.NopCloser(r.IOReadCloser()), nil
	}
	return nil, NewCompressionError(fmt.Sprintf("unsupported compression algorithm %q", algorithm), nil)
}

// CompressFile compresses src into dst.
func (c *Compressor) CompressFile(src, dst string) (*CompressionStats, error) {
	start := time.Now()

	in, err := os.Open(src)
	if err != nil {
		return nil, NewCompressionError("failed to open dump for compression", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return nil, NewCompressionError("failed to create compressed artifact", err)
	}
	defer out.Close()

	w, err := c.writer(out)
	if err != nil {
		return nil, err
	}
	written, err := io.Copy(w, in)
	if err != nil {
		w.Close()
		return nil, NewCompressionError("failed to compress dump", err)
	}
	if err := w.Close(); err != nil {
		return nil, NewCompressionError("failed to finalize compressed stream", err)
	}
	if err := out.Sync(); err != nil {
		return nil, NewCompressionError("failed to sync compressed artifact", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		return nil, NewCompressionError("failed to stat compressed artifact", err)
	}

	return &CompressionStats{
		OriginalSize:   written,
		CompressedSize: info.Size(),
		Algorithm:      c.algorithm,
		Duration:       time.Since(start),
	}, nil
}

// DecompressFile expands a compressed artifact into dst, detecting the
// algorithm from the source extension.
func DecompressFile(src, dst string) error {
	algorithm, err := AlgorithmForExt(extOf(src))
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return NewCompressionError("failed to open compressed artifact", err)
	}
	defer in.Close()

	r, err := newReader(algorithm, in)
	if err != nil {
		return err
	}
	defer r.Close()

	out, err := os.Create(dst)
	if err != nil {
		return NewCompressionError("failed to create decompressed file", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return NewCompressionError("failed to decompress artifact", err)
	}
	return out.Sync()
}

// CheckIntegrity fully decompresses the artifact, discarding the output,
// and returns the decompressed size. Stream corruption surfaces as an error.
func CheckIntegrity(path string) (int64, error) {
	algorithm, err := AlgorithmForExt(extOf(path))
	if err != nil {
		return 0, err
	}

	in, err := os.Open(path)
	if err != nil {
		return 0, NewCompressionError("failed to open compressed artifact", err)
	}
	defer in.Close()

	r, err := newReader(algorithm, in)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	n, err := io.Copy(io.Discard, r)
	if err != nil {
		return 0, NewCompressionError("compressed stream is corrupt", err)
	}
	return n, nil
}

func extOf(path string) string {
	if i := lastDot(path); i >= 0 {
		return path[i:]
	}
	return ""
}

func lastDot(path string) int {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return i
		}
	}
	return -1
}
