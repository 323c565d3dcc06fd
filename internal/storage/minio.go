package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig descreve o bucket de destino.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// MinioUploader grava objetos num servidor compatível com S3 via minio-go.
type MinioUploader struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinioUploader cria o cliente e garante que o bucket existe.
func NewMinioUploader(ctx context.Context, cfg MinioConfig) (*MinioUploader, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("storage: endpoint e bucket obrigatórios")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("storage: verificar bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("storage: criar bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &MinioUploader{client: client, bucket: cfg.Bucket, publicURL: strings.TrimRight(cfg.PublicURL, "/")}, nil
}

// Upload envia o arquivo para o bucket configurado e retorna URL pública (se disponível).
func (u *MinioUploader) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	if strings.TrimSpace(input.Key) == "" {
		return nil, errors.New("storage: chave do objeto obrigatória")
	}
	if len(input.Body) == 0 {
		return nil, errors.New("storage: corpo vazio")
	}
	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := u.client.PutObject(ctx, u.bucket, input.Key, bytes.NewReader(input.Body), int64(len(input.Body)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: input.CacheControl,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: upload %s: %w", input.Key, err)
	}

	result := &UploadResult{Key: input.Key, ETag: info.ETag}
	if u.publicURL != "" {
		result.URL = u.publicURL + "/" + input.Key
	} else {
		result.URL = u.client.EndpointURL().String() + "/" + u.bucket + "/" + input.Key
	}
	return result, nil
}
