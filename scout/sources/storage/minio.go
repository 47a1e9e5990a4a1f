package storage

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"scout/scout/config"
)

// SnapshotClient archives the extracted text of fetched pages in an S3
// compatible bucket, keyed by the md5 of the page URL.
type SnapshotClient struct {
	client *minio.Client
	bucket string
}

type snapshotObject struct {
	URL        string    `json:"url"`
	Text       string    `json:"extracted_text"`
	SourceType string    `json:"source_type"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewSnapshotClient(ctx context.Context, cfg config.Config) (*SnapshotClient, error) {
	bucket := cfg.MinIOBucket
	client, err := minio.New(
		cfg.MinIOEndpoint,
		&minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
			Secure: false,
		},
	)
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}
	return &SnapshotClient{client: client, bucket: bucket}, nil
}

func (m *SnapshotClient) UploadSnapshot(ctx context.Context, pageURL, text, sourceType string) (string, error) {
	hash := fmt.Sprintf("%x", md5.Sum([]byte(pageURL)))
	key := filepath.Join("snapshots", fmt.Sprintf("%s.json", hash))

	obj := snapshotObject{
		URL:        pageURL,
		Text:       text,
		SourceType: sourceType,
		Timestamp:  time.Now(),
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}

	_, err = m.client.PutObject(ctx, m.bucket, key, strings.NewReader(string(data)), int64(len(data)), minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", err
	}

	return key, nil
}
