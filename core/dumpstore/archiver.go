package dumpstore

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/crypto/blake2b"
)

// Archiver uploads captured minidump files to S3-compatible object storage
// and returns the location and content hash to be recorded in runhistory.
type Archiver struct {
	client *s3.Client
	cfg    Config
}

// New builds an Archiver from cfg. When cfg.Endpoint is set, the client
// targets an S3-compatible service (e.g. MinIO) instead of AWS S3.
func New(ctx context.Context, cfg Config) (*Archiver, error) {
	if cfg.Bucket == "" {
		return nil, ErrEmptyBucket
	}

	var optFns []func(*awsconfig.LoadOptions) error
	optFns = append(optFns, awsconfig.WithRegion(cfg.Region))
	if cfg.AccessKeyID != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("dumpstore: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Archiver{client: client, cfg: cfg}, nil
}

// Archived describes a successfully uploaded dump.
type Archived struct {
	Key         string
	ContentHash string
	UploadedAt  time.Time
}

// Archive reads dumpPath from disk, hashes its content with BLAKE2b, and
// uploads it under cfg.KeyPrefix/<hash>-<basename>. The hash is part of the
// key so repeated uploads of an unchanged dump are idempotent.
func (a *Archiver) Archive(ctx context.Context, dumpPath string) (Archived, error) {
	f, err := os.Open(dumpPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Archived{}, ErrDumpFileNotFound
		}
		return Archived{}, fmt.Errorf("dumpstore: open dump: %w", err)
	}
	defer f.Close()

	hash, err := blake2b.New256(nil)
	if err != nil {
		return Archived{}, fmt.Errorf("dumpstore: init hash: %w", err)
	}

	tmp, err := os.CreateTemp("", "dumpstore-*.tmp")
	if err != nil {
		return Archived{}, fmt.Errorf("dumpstore: stage upload: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(io.MultiWriter(hash, tmp), f); err != nil {
		return Archived{}, fmt.Errorf("dumpstore: read dump: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return Archived{}, fmt.Errorf("dumpstore: rewind upload: %w", err)
	}

	contentHash := hex.EncodeToString(hash.Sum(nil))
	key := path.Join(a.cfg.KeyPrefix, fmt.Sprintf("%s-%s", contentHash[:16], path.Base(dumpPath)))

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &a.cfg.Bucket,
		Key:    &key,
		Body:   tmp,
	})
	if err != nil {
		return Archived{}, classifyS3Error(err)
	}

	return Archived{Key: key, ContentHash: contentHash, UploadedAt: time.Now()}, nil
}

// Fetch downloads the object at key to destPath.
func (a *Archiver) Fetch(ctx context.Context, key, destPath string) error {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &a.cfg.Bucket,
		Key:    &key,
	})
	if err != nil {
		return classifyS3Error(err)
	}
	defer out.Body.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("dumpstore: create destination: %w", err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, out.Body); err != nil {
		return fmt.Errorf("dumpstore: download dump: %w", err)
	}
	return nil
}
