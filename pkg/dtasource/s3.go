package dtasource

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3PageSize is the granularity of ranged GetObject fetches. .dta headers
// and metadata sections are read a field at a time, so a page cache turns
// many tiny reads into one network round trip per page, following the
// ranged-GET pattern in pkg/s3fetch/client.go.
const s3PageSize = 1 << 20 // 1 MiB

// S3Source reads a .dta object directly out of S3 via ranged GetObject
// requests, so a host can query files that were never downloaded to local
// disk. It caches whole pages rather than the entire object, keeping
// memory bounded regardless of file size.
type S3Source struct {
	client *s3.Client
	bucket string
	key    string
	size   int64

	mu    sync.Mutex
	pages map[int64][]byte
}

// OpenS3 opens an "s3://bucket/key" object as a random-access Source.
func OpenS3(uri string) (Source, error) {
	bucket, key, err := parseS3URI(uri)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("dtasource: load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg)

	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("dtasource: head s3://%s/%s: %w", bucket, key, err)
	}
	size := aws.ToInt64(head.ContentLength)
	if size == 0 {
		return nil, ErrEmpty
	}

	return &S3Source{
		client: client,
		bucket: bucket,
		key:    key,
		size:   size,
		pages:  make(map[int64][]byte),
	}, nil
}

func parseS3URI(uri string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(uri, "s3://")
	if rest == uri {
		return "", "", fmt.Errorf("dtasource: not an s3:// URI: %s", uri)
	}
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("dtasource: malformed s3 URI: %s", uri)
	}
	return parts[0], parts[1], nil
}

func (s *S3Source) Size() int64 { return s.size }

func (s *S3Source) Close() error { return nil }

func (s *S3Source) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > s.size {
		return 0, fmt.Errorf("dtasource: offset %d out of range", off)
	}
	total := 0
	for total < len(p) {
		pos := off + int64(total)
		if pos >= s.size {
			break
		}
		pageStart := (pos / s3PageSize) * s3PageSize
		page, err := s.page(pageStart)
		if err != nil {
			return total, err
		}
		n := copy(p[total:], page[pos-pageStart:])
		if n == 0 {
			break
		}
		total += n
	}
	return total, nil
}

func (s *S3Source) page(start int64) ([]byte, error) {
	s.mu.Lock()
	if page, ok := s.pages[start]; ok {
		s.mu.Unlock()
		return page, nil
	}
	s.mu.Unlock()

	end := start + s3PageSize - 1
	if end >= s.size {
		end = s.size - 1
	}
	rangeHeader := fmt.Sprintf("bytes=%d-%d", start, end)
	resp, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Range:  aws.String(rangeHeader),
	})
	if err != nil {
		return nil, fmt.Errorf("dtasource: get s3://%s/%s range %s: %w", s.bucket, s.key, rangeHeader, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("dtasource: read s3://%s/%s range %s: %w", s.bucket, s.key, rangeHeader, err)
	}

	s.mu.Lock()
	s.pages[start] = data
	s.mu.Unlock()
	return data, nil
}
