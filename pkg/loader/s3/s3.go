package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/OFFIS-RIT/docgraph/pkg/loader"
)

// ObjectAPI is the subset of the S3 client used by the loader.
type ObjectAPI interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3GraphFileLoader is a GraphFileLoader implementation that loads documents
// stored under a prefix of an S3 bucket.
type S3GraphFileLoader struct {
	bucket string
	prefix string
	client ObjectAPI
	cache  *loader.Cache
}

// NewS3GraphFileLoaderWithClient creates a new S3GraphFileLoader using an
// existing client. An empty prefix lists the whole bucket.
func NewS3GraphFileLoaderWithClient(bucket, prefix string, client ObjectAPI) *S3GraphFileLoader {
	return &S3GraphFileLoader{
		bucket: bucket,
		prefix: strings.TrimPrefix(prefix, "/"),
		client: client,
		cache:  loader.NewCache(),
	}
}

// ListFiles pages through the bucket and returns every JSON object under the
// prefix ordered by key.
func (l *S3GraphFileLoader) ListFiles(ctx context.Context) ([]loader.GraphFile, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(l.bucket)}
	if l.prefix != "" {
		input.Prefix = aws.String(l.prefix)
	}

	var files []loader.GraphFile
	p := s3.NewListObjectsV2Paginator(l.client, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3://%s/%s: %w", l.bucket, l.prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !loader.IsDocument(key) {
				continue
			}
			files = append(files, l.fileFor(key))
		}
	}
	loader.SortFiles(files)
	return files, nil
}

func (l *S3GraphFileLoader) fileFor(key string) loader.GraphFile {
	return loader.NewGraphFile(loader.NewGraphFileParams{
		ID:       path.Base(key),
		FilePath: key,
		Loader:   l,
	})
}

// GetFileText retrieves the contents of the given GraphFile from the
// configured S3 bucket. Results are cached.
func (l *S3GraphFileLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	return l.cache.Load(loader.CacheKey(file), func() ([]byte, error) {
		out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(l.bucket),
			Key:    aws.String(file.FilePath),
		})
		if err != nil {
			return nil, err
		}
		defer out.Body.Close()

		buf := new(bytes.Buffer)
		if _, err := io.Copy(buf, out.Body); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
}
