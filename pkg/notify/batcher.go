package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config holds the flush thresholds of a Batcher
type Config struct {
	MaxItems    int           `mapstructure:"max_items" json:"max_items" yaml:"max_items"`
	MaxDelay    time.Duration `mapstructure:"max_delay" json:"max_delay" yaml:"max_delay"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout" json:"idle_timeout" yaml:"idle_timeout"`
}

// DefaultConfig returns the default flush thresholds
func DefaultConfig() Config {
	return Config{
		MaxItems:    32,
		MaxDelay:    250 * time.Millisecond,
		IdleTimeout: 60 * time.Millisecond,
	}
}

// WithDefaults fills zero values with the defaults
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.MaxItems <= 0 {
		c.MaxItems = d.MaxItems
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	return c
}

type item struct {
	kind    Kind
	payload string
}

// Batcher buffers the deltas of one message. All methods are safe for concurrent use.
type Batcher struct {
	mu sync.Mutex

	ctx       context.Context
	sink      Sink
	chatID    string
	messageID string
	cfg       Config
	logger    *zap.Logger

	items     []item
	lastFlush time.Time
	idle      *time.Timer
	deadline  *time.Timer
	firstText bool
	closed    bool
}

// Option configures a Batcher
type Option func(*Batcher)

// WithLogger sets the logger used to report publish failures
func WithLogger(logger *zap.Logger) Option {
	return func(b *Batcher) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBatcher creates a batcher pushing to sink. Pushes use ctx without its
// cancellation so deltas accumulated before a cancel still reach the client.
func NewBatcher(ctx context.Context, sink Sink, chatID, messageID string, cfg Config, opts ...Option) *Batcher {
	b := &Batcher{
		ctx:       context.WithoutCancel(ctx),
		sink:      sink,
		chatID:    chatID,
		messageID: messageID,
		cfg:       cfg.WithDefaults(),
		logger:    zap.NewNop(),
		lastFlush: time.Now(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// StartTurn makes the next text delta flush immediately
func (b *Batcher) StartTurn() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.firstText = true
}

// Add buffers one delta, flushing when a threshold is reached
func (b *Batcher) Add(kind Kind, payload string) {
	if payload == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	b.items = append(b.items, item{kind: kind, payload: payload})

	if kind == KindText && b.firstText {
		b.firstText = false
		b.flushLocked()
		return
	}
	if len(b.items) >= b.cfg.MaxItems || time.Since(b.lastFlush) >= b.cfg.MaxDelay {
		b.flushLocked()
		return
	}

	if len(b.items) == 1 {
		b.deadline = b.rearm(b.deadline, b.cfg.MaxDelay)
	}
	b.idle = b.rearm(b.idle, b.cfg.IdleTimeout)
}

// Flush pushes every pending delta
func (b *Batcher) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked()
}

// Close flushes pending deltas and stops the timers. Later deltas are dropped.
func (b *Batcher) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	err := b.flushLocked()
	b.closed = true
	return err
}

// Pending returns the number of buffered deltas
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func (b *Batcher) rearm(t *time.Timer, d time.Duration) *time.Timer {
	if t != nil {
		t.Stop()
	}
	return time.AfterFunc(d, b.onTimer)
}

func (b *Batcher) onTimer() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || len(b.items) == 0 {
		return
	}
	_ = b.flushLocked()
}

func (b *Batcher) stopTimers() {
	if b.idle != nil {
		b.idle.Stop()
		b.idle = nil
	}
	if b.deadline != nil {
		b.deadline.Stop()
		b.deadline = nil
	}
}

// flushLocked pushes the batch with consecutive same-kind items coalesced.
// The mutex stays held while publishing so batches never overtake each other.
func (b *Batcher) flushLocked() error {
	b.stopTimers()
	if len(b.items) == 0 {
		return nil
	}

	var errs []error
	var sb strings.Builder
	for i := 0; i < len(b.items); {
		kind := b.items[i].kind
		sb.Reset()
		for ; i < len(b.items) && b.items[i].kind == kind; i++ {
			sb.WriteString(b.items[i].payload)
		}
		if err := b.publish(kind, sb.String()); err != nil {
			b.logger.Warn("failed to publish delta",
				zap.String("message_id", b.messageID),
				zap.String("kind", string(kind)),
				zap.Error(err))
			errs = append(errs, err)
		}
	}

	clear(b.items)
	b.items = b.items[:0]
	b.lastFlush = time.Now()
	return errors.Join(errs...)
}

func (b *Batcher) publish(kind Kind, text string) error {
	switch kind {
	case KindText:
		return b.sink.PublishText(b.ctx, b.chatID, b.messageID, text)
	case KindThinking:
		return b.sink.PublishThinking(b.ctx, b.chatID, b.messageID, text)
	}
	return fmt.Errorf("unknown delta kind %q", kind)
}
