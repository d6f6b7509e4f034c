// Package file provides saf.Source values backed by files on disk, with
// transparent decompression, directory discovery and content fingerprints.
package file

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/minio/highwayhash"
	"github.com/ulikunitz/xz"

	saf "github.com/reoring/saf"
)

// Compression is the container format detected from leading magic bytes.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionBzip2
	CompressionXZ
)

func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionBzip2:
		return "bzip2"
	case CompressionXZ:
		return "xz"
	default:
		return "none"
	}
}

var (
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte("BZh")
	xzMagic    = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
)

// Detect classifies header, which should hold at least the first 6 bytes.
func Detect(header []byte) Compression {
	switch {
	case bytes.HasPrefix(header, gzipMagic):
		return CompressionGzip
	case bytes.HasPrefix(header, bzip2Magic):
		return CompressionBzip2
	case bytes.HasPrefix(header, xzMagic):
		return CompressionXZ
	}
	return CompressionNone
}

// compressedExt lists the suffixes BaseName strips besides ".saf".
var compressedExt = []string{".gz", ".bz2", ".xz"}

// Open opens path and returns a reader over its decompressed content.
func Open(path string) (io.ReadCloser, Compression, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, CompressionNone, err
	}
	br := bufio.NewReader(f)
	header, err := br.Peek(len(xzMagic))
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		f.Close()
		return nil, CompressionNone, err
	}
	c := Detect(header)
	var r io.Reader
	switch c {
	case CompressionGzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, c, fmt.Errorf("open gzip stream: %w", err)
		}
		r = gz
	case CompressionBzip2:
		r = bzip2.NewReader(br)
	case CompressionXZ:
		xr, err := xz.NewReader(br)
		if err != nil {
			f.Close()
			return nil, c, fmt.Errorf("open xz stream: %w", err)
		}
		r = xr
	default:
		r = br
	}
	return &readCloser{r: r, f: f}, c, nil
}

type readCloser struct {
	r io.Reader
	f *os.File
}

func (rc *readCloser) Read(p []byte) (int, error) { return rc.r.Read(p) }

func (rc *readCloser) Close() error {
	if c, ok := rc.r.(io.Closer); ok {
		c.Close()
	}
	return rc.f.Close()
}

// Source returns a saf.Source that reopens path on every Open.
func Source(path string) saf.Source { return fileSource(path) }

type fileSource string

func (s fileSource) Name() string { return string(s) }

func (s fileSource) Open() (io.ReadCloser, error) {
	rc, _, err := Open(string(s))
	return rc, err
}

// DefaultPattern matches plain and compressed SAF files at any depth.
const DefaultPattern = "**/*.saf*"

// Discover lists the regular files under root matching pattern (a doublestar
// glob relative to root), skipping any whose base name matches one of
// exclude. The result is sorted.
func Discover(root, pattern string, exclude []string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	matches, err := doublestar.FilepathGlob(filepath.Join(root, pattern))
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", pattern, err)
	}
	var out []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if excluded(filepath.Base(m), exclude) {
			continue
		}
		out = append(out, m)
	}
	slices.Sort(out)
	return out, nil
}

func excluded(base string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, base); ok {
			return true
		}
	}
	return false
}

// Expand resolves CLI arguments: directories are walked with Discover, files
// are kept as given. Order follows args.
func Expand(args []string, pattern string, exclude []string) ([]string, error) {
	var out []string
	for _, a := range args {
		info, err := os.Stat(a)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, a)
			continue
		}
		files, err := Discover(a, pattern, exclude)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	return out, nil
}

// FingerprintKey is the fixed HighwayHash key, so fingerprints are stable
// across runs and machines.
var FingerprintKey = []byte("saf2png fingerprint key\x00\x00\x00\x00\x00\x00\x00\x00\x00")

// Fingerprint returns the hex HighwayHash-256 of the raw (still compressed)
// bytes of path.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h, err := highwayhash.New(FingerprintKey)
	if err != nil {
		return "", fmt.Errorf("create hash: %w", err)
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// BaseName returns the file name of path without directory, compression
// suffix and ".saf" extension: "runs/a.saf.gz" becomes "a".
func BaseName(path string) string {
	base := filepath.Base(path)
	for _, ext := range compressedExt {
		if strings.HasSuffix(base, ext) {
			base = strings.TrimSuffix(base, ext)
			break
		}
	}
	return strings.TrimSuffix(base, ".saf")
}
