package saf

import (
	"bytes"
	"io"
)

// Source abstracts over where SAF bytes come from. Open may be called once
// per decode; implementations backed by files reopen them each time.
type Source interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// Bytes wraps an in-memory buffer as a Source. name is used in reports.
func Bytes(name string, b []byte) Source { return bytesSource{name: name, b: b} }

// Reader wraps r as a one-shot Source.
func Reader(name string, r io.Reader) Source { return readerSource{name: name, r: r} }

type bytesSource struct {
	name string
	b    []byte
}

func (s bytesSource) Name() string                 { return s.name }
func (s bytesSource) Open() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(s.b)), nil }

type readerSource struct {
	name string
	r    io.Reader
}

func (s readerSource) Name() string { return s.name }
func (s readerSource) Open() (io.ReadCloser, error) {
	if rc, ok := s.r.(io.ReadCloser); ok {
		return rc, nil
	}
	return io.NopCloser(s.r), nil
}

// readAll reads src enforcing maxBytes up front (0 = unlimited).
func readAll(src Source, maxBytes int64) ([]byte, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, singleIssue(fileIssue(CodeReadFailed, err))
	}
	defer rc.Close()
	var r io.Reader = rc
	if maxBytes > 0 {
		r = io.LimitReader(rc, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, singleIssue(fileIssue(CodeReadFailed, err))
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, singleIssue(fileIssue(CodeTruncated, nil, "max_bytes", maxBytes))
	}
	return data, nil
}
