package timesheet

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogNotifier writes notifications to the structured log. It is the default
// when no messaging collaborator is wired.
type LogNotifier struct {
	Log *logrus.Entry
}

func (n LogNotifier) Notify(_ context.Context, note Notification) {
	logger := n.Log
	if logger == nil {
		logger = logrus.WithField("component", "notifier")
	}
	logger.WithFields(logrus.Fields{
		"kind":     note.Kind,
		"actor_id": note.ActorID,
		"count":    note.Count,
	}).Info(note.Message)
}

// RecordingNotifier keeps notifications in memory.
type RecordingNotifier struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *RecordingNotifier) Notify(_ context.Context, note Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, note)
}

func (r *RecordingNotifier) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notes...)
}
