// Package publisher announces formed teams on a Kafka topic so downstream
// systems (badge printing, seating, mailing) can react to a finished run.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/okian/teamalloc/internal/domain/model"
	"github.com/okian/teamalloc/pkg/logger"
	"github.com/okian/teamalloc/pkg/metrics"
)

const writeTimeout = 10 * time.Second

// ErrNoTopic is returned when brokers are configured without a topic.
var ErrNoTopic = errors.New("kafka topic must not be empty")

// MessageWriter is the subset of kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config locates the Kafka cluster.
type Config struct {
	Brokers []string
	Topic   string
}

// TeamEvent is the JSON payload of one message.
type TeamEvent struct {
	TeamID       string    `json:"team_id"`
	ContestID    string    `json:"contest_id"`
	UniversityID string    `json:"university_id"`
	Name         string    `json:"name"`
	Members      []string  `json:"members"`
	MemberNames  []string  `json:"member_names"`
	Score        float64   `json:"score"`
	Flagged      bool      `json:"flagged"`
	CreatedAt    time.Time `json:"created_at"`
}

// Publisher writes one message per stored team, keyed by team ID.
type Publisher struct {
	writer MessageWriter
	logger logger.Logger
}

// Option applies a configuration option to the Publisher.
type Option func(*Publisher)

// WithWriter replaces the kafka.Writer, e.g. with a test double.
func WithWriter(w MessageWriter) Option {
	return func(p *Publisher) {
		if w != nil {
			p.writer = w
		}
	}
}

// WithLogger sets the publisher logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Publisher writing to cfg.Topic.
func New(cfg Config, opts ...Option) (*Publisher, error) {
	p := &Publisher{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("publisher")
	}
	if p.writer == nil {
		if strings.TrimSpace(cfg.Topic) == "" {
			return nil, ErrNoTopic
		}
		p.writer = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: writeTimeout,
		}
	}
	return p, nil
}

// PublishTeams sends the teams of one run as a single batch.
func (p *Publisher) PublishTeams(ctx context.Context, teams []model.StoredTeam) error {
	if len(teams) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, len(teams))
	for i := range teams {
		t := &teams[i]
		body, err := json.Marshal(TeamEvent{
			TeamID:       t.ID,
			ContestID:    t.ContestID,
			UniversityID: t.UniversityID,
			Name:         t.Name,
			Members:      t.Members,
			MemberNames:  t.Names,
			Score:        t.Score,
			Flagged:      t.Flagged,
			CreatedAt:    t.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("encode team %s: %w", t.ID, err)
		}
		msgs[i] = kafka.Message{
			Key:   []byte(t.ID),
			Value: body,
			Headers: []kafka.Header{
				{Key: "contest_id", Value: []byte(t.ContestID)},
			},
		}
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		metrics.RecordNotification("kafka", "error")
		return fmt.Errorf("publish %d teams: %w", len(msgs), err)
	}
	metrics.RecordNotification("kafka", "ok")
	p.logger.Debug(ctx, "teams published", logger.Int("count", len(msgs)))
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
