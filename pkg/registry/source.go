package registry

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Document is one schema document read from a Source
type Document struct {
	Name    string
	Content []byte
}

// Source lists the schema documents of a registry
type Source interface {
	Documents(ctx context.Context) ([]Document, error)
	String() string
}

// IsSchemaDocument reports whether name has a schema document extension
func IsSchemaDocument(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// DirSource reads schema documents from a directory tree
type DirSource struct {
	dir string
}

// NewDirSource creates a source rooted at dir
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// Dir returns the root directory
func (s *DirSource) Dir() string { return s.dir }

func (s *DirSource) String() string { return "dir:" + s.dir }

// Documents returns every schema document under the directory, ordered by
// slash-separated relative path. Hidden files and directories are skipped.
func (s *DirSource) Documents(ctx context.Context) ([]Document, error) {
	var docs []Document
	err := filepath.WalkDir(s.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p != s.dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsSchemaDocument(d.Name()) {
			return nil
		}

		content, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		rel, err := filepath.Rel(s.dir, p)
		if err != nil {
			return err
		}
		docs = append(docs, Document{Name: filepath.ToSlash(rel), Content: content})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read schema directory %s: %w", s.dir, err)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// S3Config configures an S3Source
type S3Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	Prefix       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

type s3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads schema documents from an S3 bucket prefix
type S3Source struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Source creates a source using static credentials when given, and the
// default AWS credential chain otherwise.
func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3Source(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Source(client s3API, bucket, prefix string) *S3Source {
	return &S3Source{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Source) String() string { return "s3://" + s.bucket + "/" + s.prefix }

// Documents returns every schema document under the prefix, ordered by key
// relative to the prefix.
func (s *S3Source) Documents(ctx context.Context) (docs []Document, err error) {
	ctx, span := tracer.Start(ctx, "registry.S3Source.Documents")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(
		attribute.String("s3.bucket", s.bucket),
		attribute.String("s3.prefix", s.prefix),
	)

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3://%s/%s: %w", s.bucket, s.prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if IsSchemaDocument(key) {
				keys = append(keys, key)
			}
		}
	}
	sort.Strings(keys)

	docs = make([]Document, 0, len(keys))
	for _, key := range keys {
		content, err := s.get(ctx, key)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{
			Name:    strings.TrimPrefix(strings.TrimPrefix(key, s.prefix), "/"),
			Content: content,
		})
	}
	span.SetAttributes(attribute.Int("s3.documents", len(docs)))
	return docs, nil
}

func (s *S3Source) get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", s.bucket, key, err)
	}
	return content, nil
}
