package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// localStorage keeps objects as plain files under root. Files are served
// statically under publicPath, so PresignGet returns a stable relative URL.
type localStorage struct {
	root       string
	publicPath string
}

// NewLocal creates a filesystem-backed store rooted at dir, creating it if needed.
func NewLocal(dir, publicPath string) (Storage, error) {
	if dir == "" {
		return nil, fmt.Errorf("upload directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &localStorage{root: dir, publicPath: strings.TrimRight(publicPath, "/")}, nil
}

func (l *localStorage) path(key string) (string, error) {
	p := filepath.FromSlash(key)
	if !filepath.IsLocal(p) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(l.root, p), nil
}

// Put writes r to a new file. A partially written file is removed on failure.
func (l *localStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	_, span := tracer.Start(ctx, "local.put_object",
		trace.WithAttributes(attribute.String("object_key", key)),
	)
	defer span.End()

	p, err := l.path(key)
	if err != nil {
		span.RecordError(err)
		return ObjectInfo{}, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		span.RecordError(err)
		return ObjectInfo{}, fmt.Errorf("create object directory: %w", err)
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		span.RecordError(err)
		return ObjectInfo{}, fmt.Errorf("create object file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(p)
		span.RecordError(err)
		return ObjectInfo{}, fmt.Errorf("write object file: %w", err)
	}

	span.SetAttributes(attribute.Int64("object_size", n))
	return ObjectInfo{
		Key:          key,
		Size:         n,
		ContentType:  opt.ContentType,
		LastModified: time.Now(),
		Metadata:     opt.Metadata,
	}, nil
}

func (l *localStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	_, span := tracer.Start(ctx, "local.get_object",
		trace.WithAttributes(attribute.String("object_key", key)),
	)
	defer span.End()

	p, err := l.path(key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			span.SetAttributes(attribute.Bool("found", false))
			return nil, ObjectInfo{}, ErrObjectNotFound
		}
		span.RecordError(err)
		return nil, ObjectInfo{}, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		span.RecordError(err)
		return nil, ObjectInfo{}, err
	}

	span.SetAttributes(attribute.Bool("found", true))
	return f, ObjectInfo{
		Key:          key,
		Size:         st.Size(),
		ContentType:  mime.TypeByExtension(filepath.Ext(p)),
		LastModified: st.ModTime(),
	}, nil
}

func (l *localStorage) Delete(ctx context.Context, key string) error {
	_, span := tracer.Start(ctx, "local.delete_object",
		trace.WithAttributes(attribute.String("object_key", key)),
	)
	defer span.End()

	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		span.RecordError(err)
		return err
	}
	return nil
}

// PresignGet returns the public static path of the object; expiry does not apply.
func (l *localStorage) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	if _, err := l.path(key); err != nil {
		return "", err
	}
	return path.Join(l.publicPath, key), nil
}
