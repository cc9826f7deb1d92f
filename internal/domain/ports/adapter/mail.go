package adapter

import "context"

type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

type Email struct {
	To          string
	ToName      string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer delivers transactional and promotional email.
type Mailer interface {
	Send(ctx context.Context, e Email) error
}
