// Package statusevents publishes status line changes to Kafka.
package statusevents

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/layer-report-client/internal/logger"
	"github.com/mohammed-shakir/layer-report-client/internal/status"
)

type Event struct {
	Session string       `json:"session"`
	Kind    status.Kind  `json:"kind"`
	Text    string       `json:"text"`
	Detail  string       `json:"detail,omitempty"`
	Focus   status.Focus `json:"focus,omitempty"`
	Source  string       `json:"source,omitempty"`
	TS      time.Time    `json:"ts"`
}

type Publisher struct {
	topic   string
	session string
	events  chan Event
	prod    sarama.AsyncProducer
	logger  *slog.Logger
	stopped chan struct{}

	mu       sync.Mutex
	closed   bool
	detaches []func()
}

func ProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false
	return cfg
}

func NewPublisher(brokers []string, topic, session string, queueSize int, log *slog.Logger) (*Publisher, error) {
	prod, err := sarama.NewAsyncProducer(brokers, ProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("statusevents: create async producer: %w", err)
	}
	return newWithProducer(prod, topic, session, queueSize, log), nil
}

func newWithProducer(prod sarama.AsyncProducer, topic, session string, queueSize int, log *slog.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if log == nil {
		log = logger.NopSlog()
	}
	p := &Publisher{
		topic:   topic,
		session: session,
		events:  make(chan Event, queueSize),
		prod:    prod,
		logger:  log,
		stopped: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				p.logger.Warn("statusevents: marshal error", "err", err)
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(ev.Session),
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		for err := range p.prod.Errors() {
			if err != nil {
				p.logger.Warn("statusevents: producer error", "err", err)
			}
		}
	}()

	return p
}

// Set implements status.Sink. A full queue drops the event.
func (p *Publisher) Set(s status.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	ev := Event{
		Session: p.session,
		Kind:    s.Kind,
		Text:    s.Text,
		Detail:  s.Detail,
		Focus:   s.Focus,
		Source:  s.Source,
		TS:      s.At,
	}
	select {
	case p.events <- ev:
	default:
	}
}

// Attach forwards every update of ch until Close.
func (p *Publisher) Attach(ch *status.Channel) {
	sub, cancel := ch.Subscribe(cap(p.events))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for s := range sub {
			p.Set(s)
		}
	}()
	p.mu.Lock()
	p.detaches = append(p.detaches, func() {
		cancel()
		<-done
	})
	p.mu.Unlock()
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	detaches := p.detaches
	p.detaches = nil
	p.mu.Unlock()
	for _, d := range detaches {
		d()
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()
	<-p.stopped

	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("statusevents: close producer: %w", err)
	}
	return nil
}
