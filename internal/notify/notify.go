// Package notify is the sink the workflow engine reports domain events to.
// The real delivery channel (email/SMS/push) lives outside this service;
// this package only defines the contract and a log-backed default.
package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Event kinds emitted by the handlers.
const (
	QuestionAnswered      = "question.answered"
	QuestionClosed        = "question.closed"
	ConsultationConfirmed = "consultation.confirmed"
	ConsultationCancelled = "consultation.cancelled"
	ConsultationCompleted = "consultation.completed"
	ReportTriaged         = "report.triaged"
	ReviewApproved        = "review.approved"
)

// Event is a domain event worth telling a human about.
type Event struct {
	Kind     string
	EntityID uuid.UUID
	ActorID  *uuid.UUID // nil for system/anonymous
	Message  string
}

// Dispatcher delivers events to interested parties. Implementations must
// be best-effort: a failed notification never fails the request.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event)
}

// Log writes events to the structured log.
type Log struct{}

func NewLog() *Log { return &Log{} }

func (*Log) Dispatch(ctx context.Context, ev Event) {
	slog.InfoContext(ctx, "notification",
		"kind", ev.Kind,
		"entity_id", ev.EntityID,
		"message", ev.Message,
	)
}
