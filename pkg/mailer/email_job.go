package mailer

import (
	"errors"
	"fmt"
	"strings"
)

var errInvalidJob = errors.New("invalid email job")

// EmailJob is one queued email. Template jobs carry Data and are rendered by the
// worker; literal jobs carry Subject plus Text or HTML.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Normalize trims the recipient and rejects jobs that can never be sent.
func (j *EmailJob) Normalize() error {
	j.To = strings.TrimSpace(j.To)
	j.Template = strings.TrimSpace(j.Template)
	if j.To == "" {
		return fmt.Errorf("%w: missing recipient", errInvalidJob)
	}
	if j.Template == "" && (j.Subject == "" || (j.Text == "" && j.HTML == "")) {
		return fmt.Errorf("%w: no template and no body", errInvalidJob)
	}
	EnsureRecipient(j)
	return nil
}

// EnsureRecipient defaults the Email and RecipientEmail template fields to the job's recipient.
func EnsureRecipient(job *EmailJob) {
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	for _, k := range []string{"Email", "RecipientEmail"} {
		if v, ok := job.Data[k]; !ok || fmt.Sprintf("%v", v) == "" {
			job.Data[k] = job.To
		}
	}
}
