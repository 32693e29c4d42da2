package mailer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Sender delivers one rendered email.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Renderer turns a template name and data into subject, text and html bodies.
type Renderer func(name string, data any) (subject, text, html string, err error)

// Outcome tells the consumer what to do with a delivery.
type Outcome int

const (
	Ack Outcome = iota
	// Requeue is for transient failures: the job is retried.
	Requeue
	// Drop is for payloads that can never succeed.
	Drop
)

// Processor decodes, renders and sends queued email jobs.
type Processor struct {
	Sender Sender
	Render Renderer
	// Enrich fills shared template data such as company branding. Optional.
	Enrich func(map[string]any) map[string]any
	Logger *logrus.Logger
}

// Process handles one message body and reports how it should be settled.
func (p *Processor) Process(ctx context.Context, body []byte) Outcome {
	job, err := p.prepare(body)
	if err != nil {
		p.Logger.WithError(err).Warn("dropping email job")
		return Drop
	}
	if err := p.Sender.Send(ctx, job.To, job.Subject, job.Text, job.HTML); err != nil {
		p.Logger.WithError(err).WithFields(logrus.Fields{"to": job.To, "template": job.Template}).Error("send failed, requeueing")
		return Requeue
	}
	p.Logger.WithFields(logrus.Fields{"to": job.To, "template": job.Template}).Info("email sent")
	return Ack
}

func (p *Processor) prepare(body []byte) (*EmailJob, error) {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidJob, err)
	}
	if err := job.Normalize(); err != nil {
		return nil, err
	}
	if job.Template == "" {
		return &job, nil
	}
	if p.Enrich != nil {
		job.Data = p.Enrich(job.Data)
	}
	subject, text, html, err := p.Render(job.Template, job.Data)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", job.Template, err)
	}
	job.Subject, job.Text, job.HTML = subject, text, html
	return &job, nil
}
