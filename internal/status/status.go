// Package status carries the human-readable status line shared by every
// component of a session.
package status

import (
	"sync"
	"time"
)

type Kind string

const (
	KindInfo     Kind = "info"
	KindBusy     Kind = "busy"
	KindSuccess  Kind = "success"
	KindDegraded Kind = "degraded"
	KindError    Kind = "error"
)

// Focus names the input the operator should fix next.
type Focus string

const (
	FocusNone     Focus = ""
	FocusFilter   Focus = "filter"
	FocusLocality Focus = "locality"
	FocusGroups   Focus = "groups"
	FocusLayer    Focus = "layer"
)

type Status struct {
	Kind   Kind      `json:"kind"`
	Text   string    `json:"text"`
	Detail string    `json:"detail,omitempty"`
	Focus  Focus     `json:"focus,omitempty"`
	Source string    `json:"source,omitempty"`
	At     time.Time `json:"at"`
}

// Sink is the write side components depend on.
type Sink interface {
	Set(s Status)
}

// Channel is the single per-session status holder. Subscribers receive
// every update; a subscriber that is not keeping up misses updates rather
// than blocking the writer.
type Channel struct {
	mu     sync.RWMutex
	cur    Status
	subs   map[int]chan Status
	nextID int
	now    func() time.Time
}

func NewChannel() *Channel {
	return &Channel{subs: map[int]chan Status{}, now: time.Now}
}

func (c *Channel) Set(s Status) {
	if s.At.IsZero() {
		s.At = c.now()
	}
	c.mu.Lock()
	c.cur = s
	for _, ch := range c.subs {
		select {
		case ch <- s:
		default:
		}
	}
	c.mu.Unlock()
}

func (c *Channel) Current() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cur
}

// Subscribe returns a channel of updates and a cancel func that closes it.
func (c *Channel) Subscribe(buffer int) (<-chan Status, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Status, buffer)

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Tagged stamps every status written through it with a source name.
func Tagged(sink Sink, source string) Sink {
	return tagged{sink: sink, source: source}
}

type tagged struct {
	sink   Sink
	source string
}

func (t tagged) Set(s Status) {
	if s.Source == "" {
		s.Source = t.source
	}
	t.sink.Set(s)
}

func Info(text string) Status    { return Status{Kind: KindInfo, Text: text} }
func Busy(text string) Status    { return Status{Kind: KindBusy, Text: text} }
func Success(text string) Status { return Status{Kind: KindSuccess, Text: text} }

func Degraded(text string) Status { return Status{Kind: KindDegraded, Text: text} }

func Error(text, detail string) Status {
	return Status{Kind: KindError, Text: text, Detail: detail}
}

// Recorder keeps every status it receives. Useful as a Sink in tests.
type Recorder struct {
	mu  sync.Mutex
	all []Status
}

func (r *Recorder) Set(s Status) {
	r.mu.Lock()
	r.all = append(r.all, s)
	r.mu.Unlock()
}

func (r *Recorder) All() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Status(nil), r.all...)
}

func (r *Recorder) Last() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.all) == 0 {
		return Status{}
	}
	return r.all[len(r.all)-1]
}

func (r *Recorder) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.all))
	for _, s := range r.all {
		out = append(out, s.Text)
	}
	return out
}
