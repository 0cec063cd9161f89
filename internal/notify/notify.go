// Package notify implements the transient user-facing notification center.
// Every ledger mutation surfaces exactly one notification; subscribers
// (UI toasts, logs, an optional AMQP publisher) receive a fan-out copy.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	Success Type = "success"
	Error   Type = "error"
	Warning Type = "warning"
	Info    Type = "info"
)

// Default display durations per notification type.
const (
	successDuration = 3 * time.Second
	errorDuration   = 5 * time.Second
	warningDuration = 4 * time.Second
	infoDuration    = 3 * time.Second
)

type Notification struct {
	ID       string        `json:"id"`
	Type     Type          `json:"type"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"duration"`
	At       time.Time     `json:"at"`
}

// Subscriber receives every published notification. Subscribers must not
// block; slow consumers should buffer internally.
type Subscriber func(Notification)

// Center fans notifications out to subscribers and keeps the currently
// visible set, dropped again after each notification's duration by the UI.
type Center struct {
	mu      sync.Mutex
	active  []Notification
	subs    []Subscriber
	nowFunc func() time.Time
}

func NewCenter() *Center {
	return &Center{nowFunc: time.Now}
}

// Subscribe registers a subscriber for all future notifications.
func (c *Center) Subscribe(s Subscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, s)
}

// Active returns a snapshot of notifications not yet expired.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.nowFunc()
	out := make([]Notification, 0, len(c.active))
	kept := c.active[:0]
	for _, n := range c.active {
		if now.Sub(n.At) < n.Duration {
			kept = append(kept, n)
			out = append(out, n)
		}
	}
	c.active = kept
	return out
}

// ClearAll drops every visible notification.
func (c *Center) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = nil
}

func (c *Center) publish(t Type, message string, duration time.Duration) Notification {
	n := Notification{
		ID:       uuid.NewString(),
		Type:     t,
		Message:  message,
		Duration: duration,
		At:       c.nowFunc(),
	}
	c.mu.Lock()
	c.active = append(c.active, n)
	subs := make([]Subscriber, len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, s := range subs {
		s(n)
	}
	return n
}

func (c *Center) Success(message string) Notification {
	return c.publish(Success, message, successDuration)
}

func (c *Center) Error(message string) Notification {
	return c.publish(Error, message, errorDuration)
}

func (c *Center) Warning(message string) Notification {
	return c.publish(Warning, message, warningDuration)
}

func (c *Center) Info(message string) Notification {
	return c.publish(Info, message, infoDuration)
}

// SlogSubscriber mirrors every notification into structured logs.
func SlogSubscriber(logger *slog.Logger) Subscriber {
	return func(n Notification) {
		logger.LogAttrs(context.Background(), slog.LevelInfo, "notification",
			slog.String("notification_id", n.ID),
			slog.String("type", string(n.Type)),
			slog.String("message", n.Message))
	}
}
