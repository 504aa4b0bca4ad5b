// Package intake accepts job submissions from a NATS subject.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/cloo-solutions/docintel/internal/domain"
	"github.com/cloo-solutions/docintel/internal/telemetry"
)

// Submitter schedules a job without waiting for it.
type Submitter interface {
	Submit(job domain.Job) error
}

// Reply is sent back when a submission message carries a reply subject.
type Reply struct {
	DocumentID string `json:"document_id,omitempty"`
	Accepted   bool   `json:"accepted"`
	Error      string `json:"error,omitempty"`
}

// Connect dials NATS with reconnects enabled.
func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("nats disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("nats reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return nc, nil
}

// Subscriber feeds jobs published on subject into a Submitter.
type Subscriber struct {
	nc        *nats.Conn
	subject   string
	submitter Submitter
	sub       *nats.Subscription
}

// NewSubscriber creates a new Subscriber instance
func NewSubscriber(nc *nats.Conn, subject string, submitter Submitter) *Subscriber {
	return &Subscriber{
		nc:        nc,
		subject:   subject,
		submitter: submitter,
	}
}

// Start subscribes to the job subject.
func (s *Subscriber) Start() error {
	sub, err := s.nc.Subscribe(s.subject, s.handle)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.subject, err)
	}
	s.sub = sub
	log.Printf("Listening for jobs on nats subject %s", s.subject)
	return nil
}

func (s *Subscriber) handle(msg *nats.Msg) {
	reply := s.submit(msg.Data)
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(reply)
	if err != nil {
		log.Printf("nats: failed to encode reply: %v", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		log.Printf("nats: failed to reply on %s: %v", msg.Reply, err)
	}
}

// submit decodes and schedules one message. Bad messages are logged and dropped.
func (s *Subscriber) submit(data []byte) Reply {
	var job domain.Job
	if err := json.Unmarshal(data, &job); err != nil {
		log.Printf("nats: dropping malformed job message on %s: %v", s.subject, err)
		telemetry.CaptureMessage(context.Background(), "malformed job message on "+s.subject)
		return Reply{Error: "invalid JSON"}
	}

	if err := s.submitter.Submit(job); err != nil {
		log.Printf("nats: job %q rejected: %v", job.DocumentID, err)
		return Reply{DocumentID: job.DocumentID, Error: err.Error()}
	}

	return Reply{DocumentID: job.DocumentID, Accepted: true}
}

// Publish sends job to subject.
func Publish(nc *nats.Conn, subject string, job domain.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	if err := nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}
	return nc.Flush()
}

// Request sends job to subject and waits for the subscriber's Reply.
func Request(ctx context.Context, nc *nats.Conn, subject string, job domain.Job) (*Reply, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job: %w", err)
	}
	msg, err := nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, fmt.Errorf("job request failed: %w", err)
	}
	var reply Reply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return nil, fmt.Errorf("failed to decode reply: %w", err)
	}
	return &reply, nil
}
