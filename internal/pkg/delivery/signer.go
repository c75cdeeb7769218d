package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/thamyind/litstore/internal/pkg/env"
)

// ErrNotConfigured means the storage credentials are absent.
var ErrNotConfigured = errors.New("storage not configured")

// Signer issues time-boxed presigned GET URLs against the S3-compatible
// storage gateway that holds the release assets.
type Signer struct {
	presignClient *s3.PresignClient
}

// NewSigner creates a signer for the given S3-compatible endpoint.
func NewSigner(ctx context.Context, endpointURL, region, accessKeyID, secretAccessKey string) (*Signer, error) {
	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID,
			secretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if endpointURL != "" {
			o.BaseEndpoint = aws.String(endpointURL)
			// Supabase's storage gateway needs path-style URLs.
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	})

	return &Signer{presignClient: s3.NewPresignClient(s3Client)}, nil
}

// NewSignerFromEnv wires a signer from the storage service-role credentials.
func NewSignerFromEnv(ctx context.Context) (*Signer, error) {
	accessKey := env.GetEnv("STORAGE_ACCESS_KEY_ID", "")
	secretKey := env.GetEnv("STORAGE_SECRET_ACCESS_KEY", "")
	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("%w: STORAGE_ACCESS_KEY_ID or STORAGE_SECRET_ACCESS_KEY not set", ErrNotConfigured)
	}
	return NewSigner(ctx,
		env.GetEnv("STORAGE_ENDPOINT_URL", ""),
		env.GetEnv("STORAGE_REGION", "us-east-1"),
		accessKey,
		secretKey,
	)
}

// SignedGetURL returns a presigned GET URL for one object. There is no
// public-URL fallback anywhere: a signing failure surfaces as an error.
func (s *Signer) SignedGetURL(ctx context.Context, bucket, objectKey string, expiry time.Duration) (string, error) {
	out, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign s3://%s/%s: %w", bucket, objectKey, err)
	}
	return out.URL, nil
}
