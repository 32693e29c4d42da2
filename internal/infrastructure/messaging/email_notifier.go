package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/oksasatya/go-ddd-ecommerce/internal/application"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/mailer"
)

const publishTimeout = 3 * time.Second

// Publisher puts a JSON message on the email queue.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// EmailNotifier turns notifications into email jobs for the email worker.
type EmailNotifier struct {
	pub Publisher
}

func NewEmailNotifier(pub Publisher) *EmailNotifier {
	return &EmailNotifier{pub: pub}
}

func (n *EmailNotifier) Notify(ctx context.Context, note application.Notification) error {
	if note.To == "" || note.Template == "" {
		return fmt.Errorf("notify: recipient and template are required")
	}
	job := mailer.EmailJob{To: note.To, Template: note.Template, Data: note.Data}
	c, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := n.pub.PublishJSON(c, job); err != nil {
		return fmt.Errorf("publish %s email: %w", note.Template, err)
	}
	return nil
}

var _ application.Notifier = (*EmailNotifier)(nil)
