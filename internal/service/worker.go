package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/moderated-board/internal/model"
	"github.com/unclebandit/moderated-board/internal/queue"
)

// AdminDeliverer defines the method the worker needs
type AdminDeliverer interface {
	DeliverAdminNotification(n model.AdminNotification) error
}

// NotificationWorker consumes queued administrator notifications and mails them
type NotificationWorker struct {
	Queue     queue.Queue
	Topic     string
	Deliverer AdminDeliverer
	Log       logrus.FieldLogger

	stopped chan struct{}
}

// Constructor
func NewNotificationWorker(q queue.Queue, topic string, d AdminDeliverer, log logrus.FieldLogger) *NotificationWorker {
	return &NotificationWorker{
		Queue:     q,
		Topic:     topic,
		Deliverer: d,
		Log:       log,
		stopped:   make(chan struct{}),
	}
}

// Start subscribes to the topic and returns. Jobs are handled on the queue's goroutines
// until ctx is cancelled, at which point the worker unsubscribes and Done is closed.
func (w *NotificationWorker) Start(ctx context.Context) error {
	if err := w.Queue.Subscribe(w.Topic, w.Handle); err != nil {
		return fmt.Errorf("subscribe to %s: %w", w.Topic, err)
	}
	w.Log.WithField("topic", w.Topic).Info("Notification worker running, waiting for jobs...")

	go func() {
		defer close(w.stopped)
		<-ctx.Done()
		log := w.Log.WithField("topic", w.Topic)
		if err := w.Queue.Unsubscribe(w.Topic); err != nil {
			log.WithError(err).Warn("Failed to unsubscribe notification worker")
			return
		}
		log.Info("Notification worker stopped")
	}()
	return nil
}

// Done is closed once the worker has unsubscribed after its context ended.
func (w *NotificationWorker) Done() <-chan struct{} {
	return w.stopped
}

// Handle processes one job. Undecodable payloads are dropped, delivery errors are returned for retry.
func (w *NotificationWorker) Handle(payload any) error {
	n, err := decodeNotification(payload)
	if err != nil {
		w.Log.WithError(err).Warn("Invalid job")
		return nil
	}
	return w.Deliverer.DeliverAdminNotification(n)
}

func decodeNotification(payload any) (model.AdminNotification, error) {
	switch p := payload.(type) {
	case model.AdminNotification:
		return p, nil
	case *model.AdminNotification:
		if p == nil {
			return model.AdminNotification{}, fmt.Errorf("nil notification")
		}
		return *p, nil
	case []byte:
		var n model.AdminNotification
		if err := json.Unmarshal(p, &n); err != nil {
			return model.AdminNotification{}, fmt.Errorf("decode notification: %w", err)
		}
		return n, nil
	default:
		return model.AdminNotification{}, fmt.Errorf("unexpected payload type %T", payload)
	}
}
