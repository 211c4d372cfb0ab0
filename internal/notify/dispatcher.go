// internal/notify/dispatcher.go
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const sendTimeout = 30 * time.Second

// Notification is an interest message addressed to a project's creator.
type Notification struct {
	FromName     string `json:"from_name"`
	FromEmail    string `json:"from_email"`
	Message      string `json:"message"`
	ProjectTitle string `json:"project_title"`
	ToEmail      string `json:"to_email"`
}

// Sender delivers a notification over one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// Dispatcher fans notifications out to registered senders in the background.
// Failures are logged and never reported to the caller.
type Dispatcher struct {
	mu      sync.RWMutex
	senders []Sender
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher with the given senders.
func NewDispatcher(logger *slog.Logger, senders ...Sender) *Dispatcher {
	return &Dispatcher{senders: senders, logger: logger}
}

// Register adds a sender to the dispatcher.
func (d *Dispatcher) Register(sender Sender) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.senders = append(d.senders, sender)
}

// Dispatch sends n to every sender and returns immediately.
// Sends are detached from ctx cancellation so they outlive the request that triggered them.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) {
	d.mu.RLock()
	senders := make([]Sender, len(d.senders))
	copy(senders, d.senders)
	d.mu.RUnlock()

	if len(senders) == 0 {
		d.logger.Debug("No notification senders registered, dropping notification", "project", n.ProjectTitle)
		return
	}

	base := context.WithoutCancel(ctx)
	for _, sender := range senders {
		d.wg.Add(1)
		go func(s Sender) {
			defer d.wg.Done()
			d.sendWithRecover(base, s, n)
		}(sender)
	}
}

// Wait blocks until all in-flight sends have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) sendWithRecover(ctx context.Context, sender Sender, n Notification) {
	logger := d.logger.With("sender", sender.Name(), "project", n.ProjectTitle)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Notification sender panicked", "panic", fmt.Sprint(r))
		}
	}()

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := sender.Send(sendCtx, n); err != nil {
		logger.Error("Failed to send notification", "error", err)
		return
	}
	logger.Info("Notification sent")
}
