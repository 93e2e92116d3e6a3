package model

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const s3Scheme = "s3://"

// ObjectGetter is the subset of the S3 API used to fetch artifacts.
// *s3.Client satisfies it.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store opens artifact locations. A location is either a filesystem path or
// an s3://bucket/key URI. Locations ending in .gz or .zst are decompressed
// transparently.
type Store struct {
	s3 ObjectGetter
}

// NewStore creates a Store. s3Client may be nil when no artifact lives in S3.
func NewStore(s3Client ObjectGetter) *Store {
	return &Store{s3: s3Client}
}

// Open returns a reader over the decoded artifact bytes. The caller must
// close it.
func (s *Store) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	raw, err := s.openRaw(ctx, location)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasSuffix(location, ".zst"):
		dec, err := zstd.NewReader(raw, zstd.WithDecoderConcurrency(1))
		if err != nil {
			raw.Close()
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		return &stackedReader{Reader: dec, closers: []func() error{
			func() error { dec.Close(); return nil },
			raw.Close,
		}}, nil
	case strings.HasSuffix(location, ".gz"):
		gz, err := gzip.NewReader(raw)
		if err != nil {
			raw.Close()
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		return &stackedReader{Reader: gz, closers: []func() error{gz.Close, raw.Close}}, nil
	default:
		return raw, nil
	}
}

func (s *Store) openRaw(ctx context.Context, location string) (io.ReadCloser, error) {
	if !strings.HasPrefix(location, s3Scheme) {
		return os.Open(location)
	}

	bucket, key, err := ParseS3URI(location)
	if err != nil {
		return nil, err
	}
	if s.s3 == nil {
		return nil, fmt.Errorf("no S3 client configured for %s", location)
	}
	out, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s: %w", location, err)
	}
	return out.Body, nil
}

// ParseS3URI splits s3://bucket/key into its parts.
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, s3Scheme)
	if !ok {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed s3 uri: %q", uri)
	}
	return bucket, key, nil
}

// stackedReader closes decoder and source in order.
type stackedReader struct {
	io.Reader
	closers []func() error
}

func (r *stackedReader) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
