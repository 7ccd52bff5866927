package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/benzaid32/virtuoso-ai-music-lab/config"
)

var (
	minioClient *minio.Client
	bucketName  string
)

// InitMinio initializes the MinIO client and ensures the archive bucket
// exists.
func InitMinio(cfg *config.Config) error {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		log.Printf("Created bucket: %s", cfg.MinioBucket)
	}

	minioClient = client
	bucketName = cfg.MinioBucket
	log.Println("MinIO client initialized.")
	return nil
}

// GetMinioClient returns the shared client, nil before InitMinio succeeds.
func GetMinioClient() *minio.Client {
	return minioClient
}

// ArchiveUpload stores the raw upload bytes under a date-partitioned object
// key and returns that key. The original extension is kept for tooling that
// browses the bucket.
func ArchiveUpload(ctx context.Context, fileName string, data []byte, contentType string) (string, error) {
	if minioClient == nil {
		return "", fmt.Errorf("storage: client not initialized")
	}
	now := time.Now().UTC()
	key := fmt.Sprintf("uploads/%04d/%02d/%s%s",
		now.Year(), int(now.Month()), uuid.New().String(), strings.ToLower(filepath.Ext(fileName)))

	_, err := minioClient.PutObject(ctx, bucketName, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("storage: put %s: %w", key, err)
	}
	return key, nil
}
