// Package storage opens event logs and output files on local disk, HTTP(S) or S3.
// Paths ending in .gz are transparently (de)compressed.
package storage

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// Storage reads and writes objects addressed by a scheme-specific path.
type Storage interface {
	// Reader returns a reader for the given path and its size, or -1 if unknown.
	Reader(ctx context.Context, path string) (io.ReadCloser, int64, error)

	// Writer returns a writer for the given path. The object is complete after Close.
	Writer(ctx context.Context, path string) (io.WriteCloser, error)

	// Stat returns file info.
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// Scheme returns the storage scheme (file, s3, http).
	Scheme() string
}

// FileInfo holds file metadata.
type FileInfo struct {
	Path    string
	Size    int64
	ModTime int64
	IsDir   bool
}

// Config configures remote backends.
type Config struct {
	Region       string
	Endpoint     string
	UsePathStyle bool

	// Static credentials; the default AWS chain is used when empty.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// PartSize is the multipart upload part size in bytes (default 5MB).
	PartSize int64
}

// Open returns the storage for path together with the path to pass to it.
// For s3:// URLs the returned path is the object key.
func Open(ctx context.Context, path string, cfg Config) (Storage, string, error) {
	scheme, bucket, key := ParsePath(path)

	switch scheme {
	case "file":
		return &LocalStorage{}, key, nil
	case "s3":
		if bucket == "" {
			return nil, "", fmt.Errorf("s3 path %q has no bucket", path)
		}
		s, err := NewS3Storage(ctx, bucket, cfg)
		if err != nil {
			return nil, "", err
		}
		return s, key, nil
	case "http", "https":
		return &HTTPStorage{}, path, nil
	default:
		return nil, "", fmt.Errorf("unsupported storage scheme: %s", scheme)
	}
}

// ParsePath splits a path into scheme, bucket and key. Plain paths and
// Windows drive letters are reported as scheme "file" with the path as key.
func ParsePath(path string) (scheme, bucket, key string) {
	u, err := url.Parse(path)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		return "file", "", path
	}

	switch u.Scheme {
	case "file":
		return "file", "", u.Path
	case "http", "https":
		return u.Scheme, u.Host, path
	default:
		return u.Scheme, u.Host, strings.TrimPrefix(u.Path, "/")
	}
}

// OpenReader opens path for reading, decompressing .gz content.
func OpenReader(ctx context.Context, path string, cfg Config) (io.ReadCloser, int64, error) {
	s, p, err := Open(ctx, path, cfg)
	if err != nil {
		return nil, 0, err
	}
	rc, size, err := s.Reader(ctx, p)
	if err != nil {
		return nil, 0, err
	}
	if !isGzip(path) {
		return rc, size, nil
	}

	gz, err := gzip.NewReader(rc)
	if err != nil {
		rc.Close()
		return nil, 0, fmt.Errorf("opening gzip stream %s: %w", path, err)
	}
	return &gzipReadCloser{Reader: gz, underlying: rc}, -1, nil
}

// OpenWriter opens path for writing, compressing when it ends in .gz.
func OpenWriter(ctx context.Context, path string, cfg Config) (io.WriteCloser, error) {
	s, p, err := Open(ctx, path, cfg)
	if err != nil {
		return nil, err
	}
	wc, err := s.Writer(ctx, p)
	if err != nil {
		return nil, err
	}
	if !isGzip(path) {
		return wc, nil
	}
	return &gzipWriteCloser{Writer: gzip.NewWriter(wc), underlying: wc}, nil
}

func isGzip(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}

type gzipReadCloser struct {
	*gzip.Reader
	underlying io.Closer
}

func (g *gzipReadCloser) Close() error {
	err := g.Reader.Close()
	if cerr := g.underlying.Close(); err == nil {
		err = cerr
	}
	return err
}

type gzipWriteCloser struct {
	*gzip.Writer
	underlying io.Closer
}

func (g *gzipWriteCloser) Close() error {
	err := g.Writer.Close()
	if cerr := g.underlying.Close(); err == nil {
		err = cerr
	}
	return err
}
