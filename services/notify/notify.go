package notifysvc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/mail"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/lord-charles/AMS-TURBO-REPO-sub003/core"
	"github.com/lord-charles/AMS-TURBO-REPO-sub003/core/attendance"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelPush  = "push"
)

// Sender delivers a short text message through one channel.
type Sender interface {
	Send(ctx context.Context, to core.Identity, subject, message string) error
}

// Dispatcher fans a notification out to every enabled channel.
type Dispatcher struct {
	email  core.EmailService
	sms    Sender
	push   Sender
	logger core.Logger
}

var _ attendance.Notifier = (*Dispatcher)(nil)

func NewDispatcher(email core.EmailService, sms, push Sender, logger core.Logger) *Dispatcher {
	return &Dispatcher{email: email, sms: sms, push: push, logger: logger}
}

func (d *Dispatcher) Notify(ctx context.Context, n attendance.Notification) error {
	g, ctx := errgroup.WithContext(ctx)

	if n.Channels.Email && d.email != nil {
		g.Go(func() error {
			if n.Recipient.Email == "" {
				return errors.Errorf("%s: recipient has no email address", ChannelEmail)
			}
			msg := &core.EmailMessage{
				To:           []mail.Address{{Name: n.Recipient.Username, Address: n.Recipient.Email}},
				Cc:           n.Cc,
				Bcc:          n.Bcc,
				Subject:      n.Subject,
				TemplateName: n.Template,
				TemplateData: n.Data,
			}
			for _, doc := range n.Attachments {
				if err := msg.Attach(bytes.NewReader(doc.Content), doc.Filename, doc.ContentType); err != nil {
					return errors.Wrapf(err, "%s: attaching %s", ChannelEmail, doc.Filename)
				}
			}
			d.email.SendMessages(msg)
			return nil
		})
	}
	if n.Channels.SMS && d.sms != nil {
		g.Go(func() error {
			return errors.Wrap(d.sms.Send(ctx, n.Recipient, n.Subject, n.Message), ChannelSMS)
		})
	}
	if n.Channels.Push && d.push != nil {
		g.Go(func() error {
			return errors.Wrap(d.push.Send(ctx, n.Recipient, n.Subject, n.Message), ChannelPush)
		})
	}

	if err := g.Wait(); err != nil {
		return errors.Wrapf(err, "dispatching %s", n.Kind)
	}
	d.logger.Debug(fmt.Sprintf("%s notification dispatched", n.Kind), n.Recipient)
	return nil
}

// Message is a text message recorded by a ConsoleSender.
type Message struct {
	Channel string
	To      core.Identity
	Subject string
	Body    string
}

// ConsoleSender prints messages instead of delivering them and keeps a copy.
type ConsoleSender struct {
	channel string
	out     *log.Logger

	mu   sync.Mutex
	sent []Message
}

var _ Sender = (*ConsoleSender)(nil)

func NewConsoleSender(channel string, w io.Writer) *ConsoleSender {
	return &ConsoleSender{channel: channel, out: log.New(w, "["+channel+"] ", log.LstdFlags)}
}

func (s *ConsoleSender) Send(ctx context.Context, to core.Identity, subject, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.out.Printf("to=%s subject=%q %s", to.Username, subject, message)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, Message{Channel: s.channel, To: to, Subject: subject, Body: message})
	return nil
}

// Sent returns a copy of the messages sent so far.
func (s *ConsoleSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}
