package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	defaultPartSize  = 5 * 1024 * 1024
	uploadTimeout    = 5 * time.Minute
	operationTimeout = 30 * time.Second
)

// s3API is the subset of *s3.Client used by S3Storage.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, in *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// S3Storage reads and writes objects in one bucket.
type S3Storage struct {
	bucket   string
	partSize int64
	client   s3API
}

// NewS3Storage creates an S3 client for bucket from cfg and the default AWS chain.
func NewS3Storage(ctx context.Context, bucket string, cfg Config) (*S3Storage, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				cfg.SessionToken,
			),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newS3Storage(bucket, client, cfg.PartSize), nil
}

func newS3Storage(bucket string, client s3API, partSize int64) *S3Storage {
	if partSize <= 0 {
		partSize = defaultPartSize
	}
	return &S3Storage{bucket: bucket, partSize: partSize, client: client}
}

// Bucket returns the bucket name.
func (s *S3Storage) Bucket() string { return s.bucket }

func (s *S3Storage) Scheme() string { return "s3" }

func (s *S3Storage) Reader(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get object %s/%s: %w", s.bucket, key, err)
	}
	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return out.Body, size, nil
}

func (s *S3Storage) Stat(ctx context.Context, key string) (*FileInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to head object %s/%s: %w", s.bucket, key, err)
	}

	info := &FileInfo{
		Path: "s3://" + s.bucket + "/" + key,
		Size: aws.ToInt64(out.ContentLength),
	}
	if out.LastModified != nil {
		info.ModTime = out.LastModified.Unix()
	}
	return info, nil
}

// Writer buffers up to one part in memory. Small objects are sent with a
// single PutObject on Close; larger ones use a multipart upload.
func (s *S3Storage) Writer(ctx context.Context, key string) (io.WriteCloser, error) {
	return &s3Writer{
		ctx:      ctx,
		client:   s.client,
		bucket:   s.bucket,
		key:      key,
		partSize: s.partSize,
		buf:      make([]byte, 0, s.partSize),
	}, nil
}

type s3Writer struct {
	ctx      context.Context
	client   s3API
	bucket   string
	key      string
	partSize int64

	mu       sync.Mutex
	buf      []byte
	parts    []types.CompletedPart
	uploadID string
	partNum  int32
	closed   bool
	err      error
}

func (w *s3Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, fmt.Errorf("writer is closed")
	}
	if w.err != nil {
		return 0, w.err
	}

	w.buf = append(w.buf, p...)
	for int64(len(w.buf)) >= w.partSize {
		if err := w.uploadPartLocked(w.buf[:w.partSize]); err != nil {
			w.err = err
			return len(p), err
		}
		w.buf = w.buf[w.partSize:]
	}
	return len(p), nil
}

func (w *s3Writer) uploadPartLocked(data []byte) error {
	ctx, cancel := context.WithTimeout(w.ctx, uploadTimeout)
	defer cancel()

	if w.uploadID == "" {
		out, err := w.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
			Bucket: aws.String(w.bucket),
			Key:    aws.String(w.key),
		})
		if err != nil {
			return fmt.Errorf("failed to create multipart upload: %w", err)
		}
		w.uploadID = aws.ToString(out.UploadId)
	}

	w.partNum++
	out, err := w.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(w.bucket),
		Key:        aws.String(w.key),
		UploadId:   aws.String(w.uploadID),
		PartNumber: aws.Int32(w.partNum),
		Body:       bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload part %d: %w", w.partNum, err)
	}

	w.parts = append(w.parts, types.CompletedPart{
		ETag:       out.ETag,
		PartNumber: aws.Int32(w.partNum),
	})
	return nil
}

func (w *s3Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.err != nil {
		w.abortLocked()
		return w.err
	}

	ctx, cancel := context.WithTimeout(w.ctx, uploadTimeout)
	defer cancel()

	if w.uploadID == "" {
		_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(w.bucket),
			Key:    aws.String(w.key),
			Body:   bytes.NewReader(w.buf),
		})
		if err != nil {
			return fmt.Errorf("failed to put object %s/%s: %w", w.bucket, w.key, err)
		}
		return nil
	}

	if len(w.buf) > 0 {
		if err := w.uploadPartLocked(w.buf); err != nil {
			w.abortLocked()
			return err
		}
		w.buf = w.buf[:0]
	}

	_, err := w.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(w.bucket),
		Key:      aws.String(w.key),
		UploadId: aws.String(w.uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: w.parts,
		},
	})
	if err != nil {
		w.abortLocked()
		return fmt.Errorf("failed to complete upload %s/%s: %w", w.bucket, w.key, err)
	}
	return nil
}

func (w *s3Writer) abortLocked() {
	if w.uploadID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()
	w.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(w.bucket),
		Key:      aws.String(w.key),
		UploadId: aws.String(w.uploadID),
	})
}
