package application

import (
	"context"
	"io"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
	mailtpl "github.com/oksasatya/go-ddd-ecommerce/pkg/mailer/templates"
)

// ProductIndexer mirrors the catalog into a search engine. Failures are logged by
// callers and never fail the write that triggered them.
type ProductIndexer interface {
	Index(ctx context.Context, p *entity.Product) error
	IndexMany(ctx context.Context, ps []*entity.Product) error
	Remove(ctx context.Context, id string) error
	// Search returns matching product ids, best match first.
	Search(ctx context.Context, q string, size int) ([]string, error)
}

// ImageStorage stores product images and returns their public URL.
type ImageStorage interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

// Notification is a templated message for one recipient.
type Notification struct {
	To       string
	Template string
	Data     map[string]any
}

// Notifier hands notifications to the delivery pipeline.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Template names understood by the email worker
const (
	TemplateWelcome            = mailtpl.Welcome
	TemplateOrderPlaced        = mailtpl.OrderPlaced
	TemplateOrderCancelled     = mailtpl.OrderCancelled
	TemplateOrderStatusChanged = mailtpl.OrderStatusChanged
)
