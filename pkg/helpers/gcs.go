package helpers

import (
	"context"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// NewGCSClient creates the client used for product images. creds may be a
// service account JSON document or a path to one; empty means ADC.
func NewGCSClient(ctx context.Context, creds string) (*storage.Client, error) {
	creds = strings.TrimSpace(creds)
	switch {
	case creds == "":
		return storage.NewClient(ctx)
	case strings.HasPrefix(creds, "{"):
		return storage.NewClient(ctx, option.WithCredentialsJSON([]byte(creds)))
	default:
		return storage.NewClient(ctx, option.WithCredentialsFile(creds))
	}
}
