package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// HeadObjectAPI is the part of *s3.Client the S3 prober needs.
type HeadObjectAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Config describes the bucket a documentation site is served from.
type S3Config struct {
	Bucket       string
	Region       string
	Endpoint     string // optional, for S3-compatible stores
	Prefix       string // key prefix prepended to URL paths, e.g. "site/"
	UsePathStyle bool

	// Credentials defaults to anonymous access, which suits public sites.
	Credentials aws.CredentialsProvider
}

// NewS3Client builds an S3 client from cfg.
func NewS3Client(cfg S3Config) *s3.Client {
	creds := cfg.Credentials
	if creds == nil {
		creds = aws.AnonymousCredentials{}
	}
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  creds,
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// S3Prober maps image locators onto object keys and checks them with
// HeadObject. The host part of a locator is ignored; its path becomes the key.
type S3Prober struct {
	client HeadObjectAPI
	bucket string
	prefix string
}

// NewS3Prober creates a prober for bucket. Keys are prefix + URL path without
// the leading slash.
func NewS3Prober(client HeadObjectAPI, bucket, prefix string) *S3Prober {
	return &S3Prober{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// Key returns the object key for locator.
func (p *S3Prober) Key(locator string) (string, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", err
	}
	key := strings.TrimPrefix(path.Clean("/"+u.Path), "/")
	if key == "" {
		return "", fmt.Errorf("locator %q has no object path", locator)
	}
	return p.prefix + key, nil
}

// Probe issues HeadObject for the locator's key.
func (p *S3Prober) Probe(ctx context.Context, locator string) (int, error) {
	key, err := p.Key(locator)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrProbeTransport, err)
	}

	_, err = p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return http.StatusOK, nil
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return http.StatusNotFound, nil
	}
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return http.StatusNotFound, nil
	}
	// The origin answered with something else, e.g. 403 for buckets that hide
	// missing keys. That is an answer, not a transport failure.
	var re interface{ HTTPStatusCode() int }
	if errors.As(err, &re) && re.HTTPStatusCode() > 0 {
		return re.HTTPStatusCode(), nil
	}
	return 0, fmt.Errorf("%w: %v", ErrProbeTransport, err)
}
