package email

import "context"

// Sender hands an email to a transport. The returned operation id identifies
// the accepted message; delivery may complete later.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) (string, error)
}

// Content is a rendered email
type Content struct {
	Subject string
	HTML    string
	Text    string
}
