package manifest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrNotModified is returned by a Source whose content has not changed
// since its previous successful Load.
var ErrNotModified = errors.New("manifest: not modified")

// Source supplies manifest bytes.
type Source interface {
	// Load returns the current manifest. It may return ErrNotModified.
	Load(ctx context.Context) ([]byte, error)

	// String describes the source for logs.
	String() string
}

// FileSource reads a manifest from the local filesystem.
type FileSource struct {
	Path string
}

// Load reads the file.
func (s FileSource) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return data, nil
}

func (s FileSource) String() string {
	return "file:" + s.Path
}

// S3API is the subset of the S3 client used by S3Source.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads a manifest object from S3. Repeated loads send the last
// ETag and report ErrNotModified while the object is unchanged.
type S3Source struct {
	client S3API
	bucket string
	key    string

	mu   sync.Mutex
	etag string
}

// NewS3Source creates a source for s3://bucket/key using client.
//
// Example:
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	src := manifest.NewS3Source(s3.NewFromConfig(cfg), "my-bucket", "routes.json")
func NewS3Source(client S3API, bucket, key string) *S3Source {
	return &S3Source{client: client, bucket: bucket, key: key}
}

// NewS3SourceFromEnv creates an S3Source with a client built from the
// default AWS configuration chain (environment, shared config, instance
// role). A non-empty region overrides the configured one.
func NewS3SourceFromEnv(ctx context.Context, bucket, key, region string) (*S3Source, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("manifest: loading AWS config: %w", err)
	}
	return NewS3Source(s3.NewFromConfig(cfg), bucket, key), nil
}

// Load fetches the object.
func (s *S3Source) Load(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	etag := s.etag
	s.mu.Unlock()

	in := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	}
	if etag != "" {
		in.IfNoneMatch = aws.String(etag)
	}

	out, err := s.client.GetObject(ctx, in)
	if err != nil {
		var re *awshttp.ResponseError
		if errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotModified {
			return nil, ErrNotModified
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, s, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, s, err)
	}

	s.mu.Lock()
	s.etag = aws.ToString(out.ETag)
	s.mu.Unlock()
	return data, nil
}

func (s *S3Source) String() string {
	return "s3://" + s.bucket + "/" + s.key
}
