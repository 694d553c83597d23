package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/stevemurr/persiston/codec"
	"github.com/stevemurr/persiston/record"
)

// S3API is the part of *s3.Client the S3 adapter uses.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config holds optional client settings. Empty fields fall back to the
// default AWS configuration chain.
type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewS3Client creates an S3 client. A custom endpoint switches to path-style
// addressing for S3-compatible services.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(awsCfg, clientOpts...), nil
}

// ParseS3URL splits s3://bucket/key into its parts.
func ParseS3URL(url string) (bucket, key string, err error) {
	path, ok := strings.CutPrefix(url, "s3://")
	if !ok {
		return "", "", fmt.Errorf("invalid S3 URL: %s", url)
	}
	bucket, key, _ = strings.Cut(path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid S3 URL: %s", url)
	}
	return bucket, key, nil
}

// S3Adapter keeps the dataset in a single S3 object. A missing object reads
// as no dataset.
type S3Adapter struct {
	client S3API
	bucket string
	key    string
	codec  codec.Codec
}

func NewS3Adapter(client S3API, bucket, key string, opts ...Option) *S3Adapter {
	o := newOptions(opts)
	return &S3Adapter{client: client, bucket: bucket, key: key, codec: o.codec}
}

func (a *S3Adapter) source() string {
	return "s3://" + a.bucket + "/" + a.key
}

func (a *S3Adapter) Read(ctx context.Context) (record.Dataset, error) {
	resp, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, &ReadError{Source: a.source(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ReadError{Source: a.source(), Err: err}
	}
	d, err := decodeDataset(a.codec, data)
	if err != nil {
		return nil, &ReadError{Source: a.source(), Err: err}
	}
	return d, nil
}

func (a *S3Adapter) Write(ctx context.Context, d record.Dataset) error {
	data, err := a.codec.Encode(d.Value())
	if err != nil {
		return &WriteError{Source: a.source(), Err: err}
	}
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return &WriteError{Source: a.source(), Err: err}
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	var status interface{ HTTPStatusCode() int }
	return errors.As(err, &status) && status.HTTPStatusCode() == http.StatusNotFound
}
