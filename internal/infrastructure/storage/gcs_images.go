package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
)

const uploadTimeout = 30 * time.Second

// objectWriter opens a writer for bucket/object. It is a seam over the GCS client.
type objectWriter func(ctx context.Context, bucket, object, contentType string) io.WriteCloser

// GCSImages stores product images in a Google Cloud Storage bucket.
type GCSImages struct {
	bucket string
	open   objectWriter
}

func NewGCSImages(client *gcs.Client, bucket string) *GCSImages {
	return &GCSImages{
		bucket: bucket,
		open: func(ctx context.Context, bucket, object, contentType string) io.WriteCloser {
			w := client.Bucket(bucket).Object(object).NewWriter(ctx)
			w.ContentType = contentType
			w.CacheControl = "public, max-age=86400"
			// single request upload for small files
			w.ChunkSize = 0
			return w
		},
	}
}

// Upload writes r to objectPath and returns the object's public URL.
func (g *GCSImages) Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	objectPath = strings.TrimPrefix(objectPath, "/")
	if objectPath == "" {
		return "", fmt.Errorf("upload: empty object path")
	}
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := g.open(ctx, g.bucket, objectPath, contentType)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload %s: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload %s: %w", objectPath, err)
	}
	return PublicURL(g.bucket, objectPath), nil
}

// PublicURL builds the public URL of an object, assuming public read access.
func PublicURL(bucket, objectPath string) string {
	segs := strings.Split(objectPath, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, strings.Join(segs, "/"))
}
