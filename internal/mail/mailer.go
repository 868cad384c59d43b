// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package mail enqueues outbound email for asynchronous delivery.
//
// Warden does not send mail itself. Messages are published to a NATS
// subject and picked up by a delivery worker, so a slow or unavailable
// mail provider never blocks a request. Enqueue failures are for the
// caller to log; they must never fail the operation that triggered the
// message.
package mail

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/samber/oops"
)

// DefaultSubject is the NATS subject delivery workers subscribe to.
const DefaultSubject = "warden.mail.send"

// Template names understood by the delivery worker.
const (
	TemplateVerifyAccount = "verify-account"
)

// Message is an outbound email rendered by the delivery worker from a
// named template and its data.
type Message struct {
	To       string            `json:"to"`
	Subject  string            `json:"subject"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data,omitempty"`
	QueuedAt time.Time         `json:"queued_at"`
}

// Mailer enqueues messages for delivery.
type Mailer interface {
	Enqueue(ctx context.Context, msg Message) error
}

// NATSMailer publishes messages to a NATS subject.
type NATSMailer struct {
	conn    *nats.Conn
	subject string
}

// NewNATSMailer connects to the NATS server at url. An empty subject
// falls back to DefaultSubject.
func NewNATSMailer(url, subject string) (*NATSMailer, error) {
	if subject == "" {
		subject = DefaultSubject
	}

	conn, err := nats.Connect(url,
		nats.Name("warden-mailer"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, oops.Code("MAIL_CONNECT_FAILED").
			With("url", url).
			Wrap(err)
	}
	return &NATSMailer{conn: conn, subject: subject}, nil
}

// Enqueue publishes the message. The QueuedAt timestamp is stamped here.
func (m *NATSMailer) Enqueue(_ context.Context, msg Message) error {
	msg.QueuedAt = time.Now().UTC()

	payload, err := json.Marshal(msg)
	if err != nil {
		return oops.Code("MAIL_ENCODE_FAILED").Wrap(err)
	}
	if err := m.conn.Publish(m.subject, payload); err != nil {
		return oops.Code("MAIL_PUBLISH_FAILED").
			With("subject", m.subject).
			Wrap(err)
	}
	return nil
}

// Close flushes pending publishes and drops the connection.
func (m *NATSMailer) Close() {
	_ = m.conn.Flush()
	m.conn.Close()
}

// LogMailer writes messages to the log instead of delivering them.
// Used in development and as a fallback when NATS is not configured.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Enqueue logs the message instead of sending it.
func (m *LogMailer) Enqueue(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "outbound mail (not delivered)",
		"to", msg.To,
		"subject", msg.Subject,
		"template", msg.Template,
	)
	return nil
}

// Compile-time interface checks.
var (
	_ Mailer = (*NATSMailer)(nil)
	_ Mailer = (*LogMailer)(nil)
)
