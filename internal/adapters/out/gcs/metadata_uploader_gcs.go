// internal/adapters/out/gcs/metadata_uploader_gcs.go
package gcs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/storage"

	"fableforge/internal/adapters/out/gcs/common"
	"fableforge/internal/application/usecase"
)

// MetadataUploaderGCS stores asset metadata JSON in a public GCS bucket and
// returns the public URL.
//
// オブジェクト名はコンテンツの sha256。リトライ時の再アップロードは同じ
// オブジェクトを上書きするだけなので冪等になる。
type MetadataUploaderGCS struct {
	Client *storage.Client
	Bucket string
	Prefix string
}

var _ usecase.MetadataUploader = (*MetadataUploaderGCS)(nil)

func NewMetadataUploaderGCS(client *storage.Client, bucket string) *MetadataUploaderGCS {
	return &MetadataUploaderGCS{Client: client, Bucket: bucket, Prefix: "metadata"}
}

func (u *MetadataUploaderGCS) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	if u.Client == nil {
		return "", errors.New("gcs client is nil")
	}
	if u.Bucket == "" {
		return "", errors.New("gcs bucket is empty")
	}
	if len(data) == 0 {
		return "", errors.New("metadata is empty")
	}

	sum := sha256.Sum256(data)
	objectPath := fmt.Sprintf("%s/%s.json", u.Prefix, hex.EncodeToString(sum[:]))

	w := u.Client.Bucket(u.Bucket).Object(objectPath).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write metadata object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close metadata object: %w", err)
	}

	uri := common.GCSPublicURL(u.Bucket, objectPath, "")
	log.Printf("[gcs] metadata uploaded object=%s", objectPath)
	return uri, nil
}
