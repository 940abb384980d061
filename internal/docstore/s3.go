package docstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Client is the subset of *s3.Client that S3 uses.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 stores each document as the object prefix+id in a bucket.
type S3 struct {
	client S3Client
	bucket string
	prefix string
}

func NewS3(client S3Client, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: prefix}
}

// S3Options configure NewS3Client.
type S3Options struct {
	Region    string
	Endpoint  string // for S3-compatible services; empty uses AWS
	PathStyle bool
}

// NewS3Client builds an *s3.Client. Credentials come from AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, and AWS_SESSION_TOKEN; requests are anonymous if the key
// id is unset.
func NewS3Client(opts S3Options) *s3.Client {
	o := s3.Options{
		Region:       opts.Region,
		UsePathStyle: opts.PathStyle,
	}
	if opts.Endpoint != "" {
		o.BaseEndpoint = aws.String(opts.Endpoint)
	}
	if os.Getenv("AWS_ACCESS_KEY_ID") != "" {
		o.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(envCredentials))
	} else {
		o.Credentials = aws.AnonymousCredentials{}
	}
	return s3.New(o)
}

func envCredentials(context.Context) (aws.Credentials, error) {
	creds := aws.Credentials{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "EnvironmentVariables",
	}
	if creds.SecretAccessKey == "" {
		return aws.Credentials{}, errors.New("docstore: AWS_SECRET_ACCESS_KEY is not set")
	}
	return creds, nil
}

func (s *S3) Read(ctx context.Context, id string) (string, error) {
	key, err := s.key(id)
	if err != nil {
		return "", err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return "", notFound(id)
		}
		return "", fmt.Errorf("docstore: get s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("docstore: read s3://%s/%s: %w", s.bucket, key, err)
	}
	return string(b), nil
}

func (s *S3) Write(ctx context.Context, id string, content string) error {
	key, err := s.key(id)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        strings.NewReader(content),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("docstore: put s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func (s *S3) key(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	return s.prefix + id, nil
}
