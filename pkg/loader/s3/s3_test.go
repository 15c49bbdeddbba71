package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeBucket struct {
	pages   [][]string
	objects map[string]string
	gets    int
}

func (f *fakeBucket) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	page := 0
	if in.ContinuationToken != nil {
		page = int(aws.ToString(in.ContinuationToken)[0] - '0')
	}

	out := &s3.ListObjectsV2Output{}
	for _, key := range f.pages[page] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
	}
	if page+1 < len(f.pages) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(string(rune('0' + page + 1)))
	}
	return out, nil
}

func (f *fakeBucket) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gets++
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("no such key")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestListFilesPages(t *testing.T) {
	bucket := &fakeBucket{pages: [][]string{
		{"export/b.json", "export/readme.md"},
		{"export/a.json"},
	}}

	l := NewS3GraphFileLoaderWithClient("docs", "export/", bucket)
	files, err := l.ListFiles(context.Background())
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if len(files) != 2 || files[0].FilePath != "export/a.json" || files[1].FilePath != "export/b.json" {
		t.Fatalf("unexpected files %+v", files)
	}
	if files[0].ID != "a.json" {
		t.Fatalf("expected base name as id, got %q", files[0].ID)
	}
}

func TestGetFileText(t *testing.T) {
	bucket := &fakeBucket{
		pages:   [][]string{{"a.json"}},
		objects: map[string]string{"a.json": `{"title":"A"}`},
	}

	l := NewS3GraphFileLoaderWithClient("docs", "", bucket)
	files, err := l.ListFiles(context.Background())
	if err != nil || len(files) != 1 {
		t.Fatalf("ListFiles() = %v, %v", files, err)
	}

	for range 2 {
		b, err := files[0].GetText(context.Background())
		if err != nil {
			t.Fatalf("GetText() error = %v", err)
		}
		if string(b) != `{"title":"A"}` {
			t.Fatalf("unexpected content %q", b)
		}
	}
	if bucket.gets != 1 {
		t.Fatalf("expected a single fetch, got %d", bucket.gets)
	}
}

func TestGetFileTextError(t *testing.T) {
	bucket := &fakeBucket{objects: map[string]string{}}
	l := NewS3GraphFileLoaderWithClient("docs", "", bucket)

	file := l.fileFor("missing.json")
	if _, err := file.GetText(context.Background()); err == nil {
		t.Fatalf("expected error for missing object")
	}
}
