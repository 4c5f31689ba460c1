package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"bodycheck/internal/config"
)

func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	if _, err := kv.Get(ctx, "bt_records"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := kv.Set(ctx, "bt_records", []byte(`[1]`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := kv.Set(ctx, "bt_records", []byte(`[2,1]`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := kv.Get(ctx, "bt_records")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `[2,1]` {
		t.Fatalf("expected last write, got %s", got)
	}
}

func TestMemory(t *testing.T) {
	exerciseKV(t, NewMemory(0))
}

func TestMemoryQuota(t *testing.T) {
	m := NewMemory(10)
	ctx := context.Background()
	if err := m.Set(ctx, "a", []byte("123456")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := m.Set(ctx, "b", []byte("123456")); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if err := m.Set(ctx, "a", []byte("1234567890")); err != nil {
		t.Fatalf("overwrite within quota: %v", err)
	}
}

func TestFile(t *testing.T) {
	kv, err := NewFile(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	exerciseKV(t, kv)
}

func TestFileQuota(t *testing.T) {
	kv, err := NewFile(t.TempDir(), 4)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if err := kv.Set(context.Background(), "k", []byte("12345")); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestFileKeysStayInsideDir(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFile(dir, 0)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if got := kv.path("../../etc/passwd"); !bytes.HasPrefix([]byte(got), []byte(dir)) {
		t.Fatalf("expected path under %s, got %s", dir, got)
	}
}

type stubS3 struct {
	objects map[string][]byte
}

func (s *stubS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := s.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (s *stubS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	s.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func TestS3(t *testing.T) {
	stub := &stubS3{objects: map[string][]byte{}}
	exerciseKV(t, &S3{client: stub, bucket: "b", prefix: "p/"})
	if _, ok := stub.objects["p/bt_records.json"]; !ok {
		t.Fatalf("expected prefixed object key, got %v", stub.objects)
	}
}

type stubRow struct {
	value []byte
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.value
	return nil
}

type stubPG struct {
	rows map[string][]byte
}

func (s *stubPG) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	if len(args) == 2 {
		s.rows[args[0].(string)] = args[1].([]byte)
	}
	return pgconn.CommandTag{}, nil
}

func (s *stubPG) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	v, ok := s.rows[args[0].(string)]
	if !ok {
		return stubRow{err: pgx.ErrNoRows}
	}
	return stubRow{value: v}
}

func TestPostgres(t *testing.T) {
	p := &Postgres{db: &stubPG{rows: map[string][]byte{}}}
	if err := p.migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	exerciseKV(t, p)
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	if _, _, err := Open(context.Background(), config.Config{StorageBackend: "floppy"}); err == nil {
		t.Fatal("expected unknown backend to fail")
	}
}

func TestOpenFile(t *testing.T) {
	kv, closeFn, err := Open(context.Background(), config.Config{StorageBackend: "file", StorageDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()
	if _, ok := kv.(*File); !ok {
		t.Fatalf("expected *File, got %T", kv)
	}
}
