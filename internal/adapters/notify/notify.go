// Package notify mails the contest coordinator when a run produces teams
// with an exclusion conflict, so a human can review them.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mail "github.com/xhit/go-simple-mail/v2"

	"github.com/okian/teamalloc/internal/domain/model"
	"github.com/okian/teamalloc/pkg/logger"
	"github.com/okian/teamalloc/pkg/metrics"
)

const smtpTimeout = 30 * time.Second

// ErrNoRecipient is returned when a notifier has nobody to write to.
var ErrNoRecipient = errors.New("coordinator email must not be empty")

// Config holds SMTP settings and the coordinator address.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	Coordinator string
}

// Sender delivers a prepared message.
type Sender interface {
	Send(ctx context.Context, email *mail.Email) error
}

// SMTPSender opens one SMTP connection per message.
type SMTPSender struct {
	cfg Config
}

// NewSMTPSender creates a sender for cfg.
func NewSMTPSender(cfg Config) *SMTPSender { return &SMTPSender{cfg: cfg} }

// Send connects, sends and disconnects.
func (s *SMTPSender) Send(ctx context.Context, email *mail.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	client := mail.NewSMTPClient()
	client.Host = s.cfg.Host
	client.Port = s.cfg.Port
	client.Username = s.cfg.Username
	client.Password = s.cfg.Password
	client.Encryption = encryptionFor(s.cfg.Port)
	if s.cfg.Username != "" {
		client.Authentication = mail.AuthLogin
	} else {
		client.Authentication = mail.AuthNone
	}
	client.KeepAlive = false
	client.ConnectTimeout = smtpTimeout
	client.SendTimeout = smtpTimeout

	conn, err := client.Connect()
	if err != nil {
		return fmt.Errorf("smtp connect %s:%d: %w", s.cfg.Host, s.cfg.Port, err)
	}
	defer conn.Close()
	return email.Send(conn)
}

func encryptionFor(port int) mail.Encryption {
	switch port {
	case 465:
		return mail.EncryptionSSLTLS
	case 587:
		return mail.EncryptionSTARTTLS
	default:
		return mail.EncryptionNone
	}
}

// Notifier composes and sends flagged-team reports.
type Notifier struct {
	from   string
	to     string
	sender Sender
	logger logger.Logger
}

// Option applies a configuration option to the Notifier.
type Option func(*Notifier)

// WithSender replaces the SMTP sender.
func WithSender(s Sender) Option {
	return func(n *Notifier) {
		if s != nil {
			n.sender = s
		}
	}
}

// WithLogger sets the notifier logger.
func WithLogger(l logger.Logger) Option {
	return func(n *Notifier) {
		if l != nil {
			n.logger = l
		}
	}
}

// New creates a Notifier. The From address falls back to the SMTP username.
func New(cfg Config, opts ...Option) (*Notifier, error) {
	if strings.TrimSpace(cfg.Coordinator) == "" {
		return nil, ErrNoRecipient
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	n := &Notifier{from: from, to: strings.TrimSpace(cfg.Coordinator)}
	for _, opt := range opts {
		opt(n)
	}
	if n.sender == nil {
		n.sender = NewSMTPSender(cfg)
	}
	if n.logger == nil {
		n.logger = logger.Get().Named("notify")
	}
	return n, nil
}

// NotifyFlagged mails the flagged subset of teams. It does nothing when no
// team is flagged.
func (n *Notifier) NotifyFlagged(ctx context.Context, uni model.University, teams []model.StoredTeam) error {
	var flagged []model.StoredTeam
	for i := range teams {
		if teams[i].Flagged {
			flagged = append(flagged, teams[i])
		}
	}
	if len(flagged) == 0 {
		return nil
	}

	email := mail.NewMSG().
		SetFrom(n.from).
		AddTo(n.to).
		SetSubject(Subject(uni, len(flagged))).
		SetBody(mail.TextPlain, Body(uni, flagged))
	if email.Error != nil {
		metrics.RecordNotification("mail", "error")
		return fmt.Errorf("compose flagged report: %w", email.Error)
	}
	if err := n.sender.Send(ctx, email); err != nil {
		metrics.RecordNotification("mail", "error")
		return fmt.Errorf("send flagged report: %w", err)
	}
	metrics.RecordNotification("mail", "ok")
	n.logger.Info(ctx, "flagged teams reported",
		logger.String("university_id", uni.ID),
		logger.Int("flagged", len(flagged)),
	)
	return nil
}

// Subject is the report subject line.
func Subject(uni model.University, flagged int) string {
	noun := "teams"
	if flagged == 1 {
		noun = "team"
	}
	return fmt.Sprintf("[%s] %d %s need review", uni.Name, flagged, noun)
}

// Body lists each flagged team with its members.
func Body(uni model.University, flagged []model.StoredTeam) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The latest allocation for %s formed teams where a member asked not to be grouped with a teammate.\n\n", uni.Name)
	for i := range flagged {
		t := &flagged[i]
		fmt.Fprintf(&b, "%s\n", t.Name)
		for j, id := range t.Members {
			name := id
			if j < len(t.Names) {
				name = t.Names[j]
			}
			fmt.Fprintf(&b, "  - %s (%s)\n", name, id)
		}
		b.WriteString("\n")
	}
	return b.String()
}
