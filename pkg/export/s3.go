package export

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dd0wney/cluso-gridmap/pkg/config"
)

// ObjectPutter is the part of the S3 client the publisher needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher uploads artifacts under bucket/prefix/runID/.
type S3Publisher struct {
	client ObjectPutter
	bucket string
	prefix string
}

// NewS3Publisher builds a publisher from the default AWS credential chain.
func NewS3Publisher(ctx context.Context, cfg config.S3Config) (*S3Publisher, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3PublisherWithClient(s3.NewFromConfig(awsCfg), cfg), nil
}

// NewS3PublisherWithClient wraps an existing client.
func NewS3PublisherWithClient(client ObjectPutter, cfg config.S3Config) *S3Publisher {
	return &S3Publisher{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}
}

// Key returns the object key of an artifact.
func (p *S3Publisher) Key(runID, name string) string {
	return path.Join(p.prefix, runID, name)
}

// Publish uploads every artifact and returns the keys written.
func (p *S3Publisher) Publish(ctx context.Context, runID string, artifacts []Artifact) ([]string, error) {
	keys := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		key := p.Key(runID, a.Name)
		_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(p.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(a.Data),
			ContentType: aws.String(a.ContentType),
		})
		if err != nil {
			return keys, fmt.Errorf("failed to upload s3://%s/%s: %w", p.bucket, key, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
