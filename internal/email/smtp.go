package email

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/smtp"
	"net/textproto"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/diary-api/internal/metrics"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers email synchronously over SMTP
type SMTPSender struct {
	host     string
	port     string
	user     string
	password string
	from     string
	sendMail sendMailFunc
	now      func() time.Time
}

func NewSMTPSender(host, port, user, password, from string) *SMTPSender {
	if from == "" {
		from = user
	}
	return &SMTPSender{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		from:     from,
		sendMail: smtp.SendMail,
		now:      time.Now,
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody, textBody string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	operationID := uuid.NewString()
	msg, err := s.buildMessage(operationID, to, subject, htmlBody, textBody)
	if err != nil {
		return "", fmt.Errorf("build message: %w", err)
	}

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.password, s.host)
	}

	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	if err := s.sendMail(addr, auth, s.from, []string{to}, msg); err != nil {
		metrics.EmailsSent.WithLabelValues("smtp", "error").Inc()
		return "", fmt.Errorf("send email: %w", err)
	}

	metrics.EmailsSent.WithLabelValues("smtp", "ok").Inc()
	return operationID, nil
}

func (s *SMTPSender) buildMessage(operationID, to, subject, htmlBody, textBody string) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	parts := []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=UTF-8", textBody},
		{"text/html; charset=UTF-8", htmlBody},
	}
	for _, p := range parts {
		pw, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, err
		}
		qp := quotedprintable.NewWriter(pw)
		if _, err := qp.Write([]byte(p.content)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&msg, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	fmt.Fprintf(&msg, "Message-ID: <%s@%s>\r\n", operationID, s.host)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n", mw.Boundary())
	fmt.Fprintf(&msg, "\r\n")
	msg.Write(body.Bytes())

	return msg.Bytes(), nil
}
