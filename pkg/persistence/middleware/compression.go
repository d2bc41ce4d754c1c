package middleware

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"

	"github.com/aretw0/nonplanar/pkg/domain"
	"github.com/aretw0/nonplanar/pkg/ports"
)

const compressedKey = "__gzip__"

type compressionMiddleware struct {
	next  ports.JobStore
	level int
}

// NewCompressionMiddleware creates a middleware that gzips each job before it is
// stored. G-code compresses well, so this keeps large outputs cheap in Redis.
// Levels outside gzip's range fall back to gzip.DefaultCompression.
func NewCompressionMiddleware(level int) Middleware {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}
	return func(next ports.JobStore) ports.JobStore {
		return &compressionMiddleware{next: next, level: level}
	}
}

func (m *compressionMiddleware) Save(ctx context.Context, job *domain.Job) error {
	envelope, err := seal(job, compressedKey, m.compress)
	if err != nil {
		return fmt.Errorf("failed to compress job: %w", err)
	}
	return m.next.Save(ctx, envelope)
}

func (m *compressionMiddleware) Load(ctx context.Context, id string) (*domain.Job, error) {
	envelope, err := m.next.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	job, err := open(envelope, compressedKey, decompress)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress job: %w", err)
	}
	return job, nil
}

func (m *compressionMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *compressionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *compressionMiddleware) compress(plain []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, m.level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(plain); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
