package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeUploader struct {
	bucket, key, contentType string
	body                     []byte
	err                      error
}

func (u *fakeUploader) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if u.err != nil {
		return nil, u.err
	}
	u.bucket = aws.ToString(params.Bucket)
	u.key = aws.ToString(params.Key)
	u.contentType = aws.ToString(params.ContentType)
	b, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	u.body = b
	return &s3.PutObjectOutput{}, nil
}

func TestUploadFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "failed_nodes.log")
	if err := os.WriteFile(file, []byte(`{"run_id":"r1"}`+"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	u := &fakeUploader{}
	key, err := UploadFile(context.Background(), u, "graphs", "runs/r1", file)
	if err != nil {
		t.Fatalf("UploadFile() error = %v", err)
	}
	if key != "runs/r1/failed_nodes.log" || u.key != key || u.bucket != "graphs" {
		t.Fatalf("unexpected upload %q to %s/%s", key, u.bucket, u.key)
	}
	if string(u.body) != `{"run_id":"r1"}`+"\n" {
		t.Fatalf("unexpected body %q", u.body)
	}
	if u.contentType == "" {
		t.Fatalf("expected a content type")
	}
}

func TestUploadFileErrors(t *testing.T) {
	if _, err := UploadFile(context.Background(), &fakeUploader{}, "b", "p", filepath.Join(t.TempDir(), "missing.log")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	file := filepath.Join(t.TempDir(), "a.log")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := UploadFile(context.Background(), &fakeUploader{err: errors.New("denied")}, "b", "p", file); err == nil {
		t.Fatalf("expected upload error")
	}
}

func TestUploader(t *testing.T) {
	file := filepath.Join(t.TempDir(), "failed_relationships.log")
	if err := os.WriteFile(file, []byte("{}\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Uploader{Client: &fakeUploader{}, Bucket: "graphs", Prefix: "runs/r2"}.Upload(context.Background(), file)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if got != "s3://graphs/runs/r2/failed_relationships.log" {
		t.Fatalf("Upload() = %q", got)
	}
}
