package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/OFFIS-RIT/docgraph/internal/util"
)

// Bucket returns the configured AWS_BUCKET.
func Bucket() string {
	return util.GetEnv("AWS_BUCKET")
}

// NewS3Client builds a path-style S3 client from the AWS_* variables. An
// empty AWS_ENDPOINT targets AWS itself.
func NewS3Client(ctx context.Context) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(util.GetEnvString("AWS_REGION", "us-east-1")),
	}
	if endpoint := util.GetEnv("AWS_ENDPOINT"); endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(endpoint))
	}
	if accessKey := util.GetEnv("AWS_ACCESS_KEY"); accessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			util.GetEnv("AWS_SECRET_KEY"),
			"",
		)))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	}), nil
}

// PutObjectAPI is the part of the S3 client needed for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// UploadFile stores the local file under prefix/<base name> and returns the
// object key.
func UploadFile(ctx context.Context, client PutObjectAPI, bucket, prefix, file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()

	key := path.Join(prefix, filepath.Base(file))
	contentType := mime.TypeByExtension(filepath.Ext(file))
	if contentType == "" {
		contentType = "application/x-ndjson"
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to S3: %w", file, err)
	}
	return key, nil
}

// Uploader uploads files below Prefix of Bucket.
type Uploader struct {
	Client PutObjectAPI
	Bucket string
	Prefix string
}

// Upload stores file and returns its s3:// location.
func (u Uploader) Upload(ctx context.Context, file string) (string, error) {
	key, err := UploadFile(ctx, u.Client, u.Bucket, u.Prefix, file)
	if err != nil {
		return "", err
	}
	return "s3://" + u.Bucket + "/" + key, nil
}
