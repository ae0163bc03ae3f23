package history

import (
	"context"
	"log"

	"wheelofnames/internal/model"
	"wheelofnames/internal/queue"
)

// Sink stores history entries.
type Sink interface {
	RecordHistory(ctx context.Context, entry model.HistoryEntry) error
}

// Entry converts a queued lifecycle event into a history row. The message id
// becomes the row id so redelivered messages are written once.
func Entry(msg queue.Message) model.HistoryEntry {
	return model.HistoryEntry{
		ID:         msg.ID,
		ClassID:    msg.ClassID,
		ActivityID: msg.ActivityID,
		StudentID:  msg.StudentID,
		Event:      msg.Type,
		OccurredAt: msg.At,
	}
}

// Run consumes lifecycle events until ctx ends and writes each one to sink.
// It returns the number of entries written.
func Run(ctx context.Context, q queue.Queue, sink Sink) (int, error) {
	messages, err := q.Consume(ctx)
	if err != nil {
		return 0, err
	}
	written := 0
	for msg := range messages {
		if msg.ClassID == "" || msg.Type == "" {
			log.Printf("history: dropping malformed event %q", msg.ID)
			continue
		}
		if err := sink.RecordHistory(ctx, Entry(msg)); err != nil {
			log.Printf("history: record %s for class %s failed: %v", msg.Type, msg.ClassID, err)
			continue
		}
		written++
	}
	return written, nil
}
