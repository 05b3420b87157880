package remote

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// S3Backend stores archives in an AWS S3 bucket.
type S3Backend struct {
	client *s3.Client
	bucket string
}

// NewS3Backend dials S3 with the default credential chain (env vars,
// ~/.aws/credentials, instance profile) and verifies the credentials
// actually work before accepting them.
func NewS3Backend(ctx context.Context, bucket, region string) (*S3Backend, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if err := validateCredentials(ctx, cfg); err != nil {
		return nil, err
	}

	return &S3Backend{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
	}, nil
}

func (b *S3Backend) Name() string { return "s3" }

func (b *S3Backend) Put(ctx context.Context, key, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", b.bucket, key, err)
	}
	return nil
}

func (b *S3Backend) Get(ctx context.Context, key, localPath string) error {
	resp, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to download s3://%s/%s: %w", b.bucket, key, err)
	}
	defer resp.Body.Close()

	return writeLocal(localPath, resp.Body)
}

// validateCredentials performs an STS GetCallerIdentity call so bad
// credentials fail at startup rather than mid-deployment.
func validateCredentials(ctx context.Context, cfg aws.Config) error {
	stsClient := sts.NewFromConfig(cfg)
	result, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return fmt.Errorf("AWS credential validation failed: %w", err)
	}
	if result.Account == nil || result.Arn == nil {
		return fmt.Errorf("AWS credential validation returned incomplete identity")
	}
	return nil
}

// writeLocal streams a remote object into a local file, fsyncing
// before close so a torn download never looks like a valid archive.
func writeLocal(localPath string, r io.Reader) error {
	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(localPath)
		return fmt.Errorf("failed to write local file: %w", err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(localPath)
		return fmt.Errorf("failed to sync local file: %w", err)
	}
	return out.Close()
}
