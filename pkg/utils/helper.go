package utils

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hakikenya/haki-backend/pkg/models"
)

// LogHistory inserts an audit record into workflow_histories.
// Used to track status transitions on questions, consultations, and reports.
// Errors are ignored on purpose (best-effort logging).
func LogHistory(
	ctx context.Context,
	db *gorm.DB,
	entityKind string,
	entityID uuid.UUID,
	actorID *uuid.UUID,
	action, oldStatus, newStatus, note string,
) {
	_ = db.WithContext(ctx).Create(&models.WorkflowHistory{
		EntityKind: entityKind,
		EntityID:   entityID,
		ActorID:    actorID,
		Action:     action,
		OldStatus:  oldStatus,
		NewStatus:  newStatus,
		Note:       note,
	}).Error
}
