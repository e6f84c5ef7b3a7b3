package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		path                string
		scheme, bucket, key string
	}{
		{"logs/a.xes", "file", "", "logs/a.xes"},
		{"/tmp/a.csv", "file", "", "/tmp/a.csv"},
		{`C:\logs\a.xes`, "file", "", `C:\logs\a.xes`},
		{"file:///tmp/a.xes", "file", "", "/tmp/a.xes"},
		{"s3://bucket/dir/a.xes.gz", "s3", "bucket", "dir/a.xes.gz"},
		{"https://example.com/a.xes", "https", "example.com", "https://example.com/a.xes"},
	}

	for _, tt := range tests {
		scheme, bucket, key := ParsePath(tt.path)
		if scheme != tt.scheme || bucket != tt.bucket || key != tt.key {
			t.Errorf("ParsePath(%q) = (%q, %q, %q), expected (%q, %q, %q)",
				tt.path, scheme, bucket, key, tt.scheme, tt.bucket, tt.key)
		}
	}
}

func TestOpen_Unsupported(t *testing.T) {
	if _, _, err := Open(context.Background(), "ftp://host/a.xes", Config{}); err == nil {
		t.Error("Expected error for ftp scheme")
	}
	if _, _, err := Open(context.Background(), "s3:///a.xes", Config{}); err == nil {
		t.Error("Expected error for s3 path without bucket")
	}
}

func TestLocal_GzipRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "log.csv.gz")
	body := "case,activity\n1,a\n1,b\n"

	w, err := OpenWriter(ctx, path, Config{})
	if err != nil {
		t.Fatalf("OpenWriter failed: %v", err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	info, err := (&LocalStorage{}).Stat(ctx, path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size == 0 || info.IsDir {
		t.Errorf("Unexpected file info %+v", info)
	}

	r, size, err := OpenReader(ctx, path, Config{})
	if err != nil {
		t.Fatalf("OpenReader failed: %v", err)
	}
	defer r.Close()
	if size != -1 {
		t.Errorf("Expected unknown size for gzip stream, got %d", size)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(got) != body {
		t.Errorf("Expected %q, got %q", body, got)
	}
}

func TestLocal_Plain(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "log.xes")

	w, err := OpenWriter(ctx, path, Config{})
	if err != nil {
		t.Fatalf("OpenWriter failed: %v", err)
	}
	io.WriteString(w, "<log/>")
	w.Close()

	r, size, err := OpenReader(ctx, path, Config{})
	if err != nil {
		t.Fatalf("OpenReader failed: %v", err)
	}
	defer r.Close()
	if size != 6 {
		t.Errorf("Expected size 6, got %d", size)
	}
}

func TestHTTP_Reader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/log.csv" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, "case,activity\n")
	}))
	defer srv.Close()

	ctx := context.Background()
	r, _, err := OpenReader(ctx, srv.URL+"/log.csv", Config{})
	if err != nil {
		t.Fatalf("OpenReader failed: %v", err)
	}
	got, _ := io.ReadAll(r)
	r.Close()
	if string(got) != "case,activity\n" {
		t.Errorf("Unexpected body %q", got)
	}

	if _, _, err := OpenReader(ctx, srv.URL+"/missing.csv", Config{}); err == nil {
		t.Error("Expected error for 404")
	}
	if _, err := OpenWriter(ctx, srv.URL+"/out.parquet", Config{}); err == nil {
		t.Error("Expected HTTP storage to be read-only")
	}
}

// fakeS3 keeps objects in memory and records multipart uploads.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	uploads map[string]map[int32][]byte
	puts    int
	parts   int
	aborted int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, uploads: map[string]map[int32][]byte{}}
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, fmt.Errorf("NoSuchKey")
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, fmt.Errorf("NotFound")
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("upload-%d", len(f.uploads)+1)
	f.uploads[id] = map[int32][]byte{}
	return &s3.CreateMultipartUploadOutput{UploadId: aws.String(id)}, nil
}

func (f *fakeS3) UploadPart(ctx context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parts++
	n := aws.ToInt32(in.PartNumber)
	f.uploads[aws.ToString(in.UploadId)][n] = data
	return &s3.UploadPartOutput{ETag: aws.String(fmt.Sprintf("etag-%d", n))}, nil
}

func (f *fakeS3) CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	parts := f.uploads[aws.ToString(in.UploadId)]
	nums := make([]int, 0, len(parts))
	for _, p := range in.MultipartUpload.Parts {
		nums = append(nums, int(aws.ToInt32(p.PartNumber)))
	}
	sort.Ints(nums)
	var buf bytes.Buffer
	for _, n := range nums {
		buf.Write(parts[int32(n)])
	}
	f.objects[aws.ToString(in.Key)] = buf.Bytes()
	return &s3.CompleteMultipartUploadOutput{}, nil
}

func (f *fakeS3) AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborted++
	return &s3.AbortMultipartUploadOutput{}, nil
}

func TestS3_SmallObjectUsesPut(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := newS3Storage("logs", fake, 16)

	w, _ := s.Writer(ctx, "in/a.xes")
	io.WriteString(w, "<log></log>")
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if fake.puts != 1 || fake.parts != 0 {
		t.Errorf("Expected 1 put and 0 parts, got %d and %d", fake.puts, fake.parts)
	}

	r, size, err := s.Reader(ctx, "in/a.xes")
	if err != nil {
		t.Fatalf("Reader failed: %v", err)
	}
	got, _ := io.ReadAll(r)
	r.Close()
	if string(got) != "<log></log>" || size != 11 {
		t.Errorf("Expected 11 bytes of log, got %d %q", size, got)
	}

	info, err := s.Stat(ctx, "in/a.xes")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Path != "s3://logs/in/a.xes" || info.Size != 11 {
		t.Errorf("Unexpected info %+v", info)
	}
}

func TestS3_Multipart(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := newS3Storage("logs", fake, 4)

	body := strings.Repeat("abcdefghij", 3)
	w, _ := s.Writer(ctx, "out/instances.parquet")
	for i := 0; i < len(body); i += 7 {
		end := i + 7
		if end > len(body) {
			end = len(body)
		}
		if _, err := w.Write([]byte(body[i:end])); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Expected second Close to be a no-op, got %v", err)
	}

	if fake.puts != 0 {
		t.Errorf("Expected no PutObject for multipart writes, got %d", fake.puts)
	}
	// 30 bytes in 4-byte parts: 7 full parts plus a 2-byte tail.
	if fake.parts != 8 {
		t.Errorf("Expected 8 parts, got %d", fake.parts)
	}
	if got := string(fake.objects["out/instances.parquet"]); got != body {
		t.Errorf("Expected reassembled %q, got %q", body, got)
	}
	if _, err := w.Write([]byte("x")); err == nil {
		t.Error("Expected write after close to fail")
	}
}

func TestS3_MissingObject(t *testing.T) {
	s := newS3Storage("logs", newFakeS3(), 0)
	if s.partSize != defaultPartSize {
		t.Errorf("Expected default part size, got %d", s.partSize)
	}
	if _, _, err := s.Reader(context.Background(), "nope"); err == nil {
		t.Error("Expected error for missing key")
	}
	if s.Scheme() != "s3" || s.Bucket() != "logs" {
		t.Errorf("Unexpected scheme/bucket %s/%s", s.Scheme(), s.Bucket())
	}
}
