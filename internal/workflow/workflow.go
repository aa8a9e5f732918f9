// Package workflow owns the entity lifecycles: which status may follow
// which, and how a transition is applied to the store without losing a
// race against a concurrent transition.
package workflow

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hakikenya/haki-backend/pkg/models"
)

/* =========================== Transition tables ========================== */

var questionTable = map[models.QuestionStatus][]models.QuestionStatus{
	models.QuestionPending:  {models.QuestionAnswered, models.QuestionClosed},
	models.QuestionAnswered: {models.QuestionClosed},
	// closed is terminal
}

var consultationTable = map[models.ConsultationStatus][]models.ConsultationStatus{
	models.ConsultationPending:   {models.ConsultationConfirmed, models.ConsultationCancelled},
	models.ConsultationConfirmed: {models.ConsultationCompleted, models.ConsultationCancelled},
	// completed and cancelled are terminal
}

var reportTable = map[models.ReportStatus][]models.ReportStatus{
	// closed is reachable from every live state (administrative override).
	models.ReportPending:     {models.ReportUnderReview, models.ReportClosed},
	models.ReportUnderReview: {models.ReportResolved, models.ReportClosed},
	models.ReportResolved:    {models.ReportClosed},
	// closed is terminal
}

func contains[S ~string](list []S, s S) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// QuestionCan reports whether a legal question may move from -> to.
func QuestionCan(from, to models.QuestionStatus) bool {
	return contains(questionTable[from], to)
}

// ConsultationCan reports whether a consultation may move from -> to.
func ConsultationCan(from, to models.ConsultationStatus) bool {
	return contains(consultationTable[from], to)
}

// ReportCan reports whether an anonymous report may move from -> to.
func ReportCan(from, to models.ReportStatus) bool {
	return contains(reportTable[from], to)
}

// ReportTerminal reports whether a report status admits no further
// transition (and no more priority edits).
func ReportTerminal(s models.ReportStatus) bool {
	return len(reportTable[s]) == 0
}

/* ============================ CAS application =========================== */

// casUpdate is the one write path for status transitions: an UPDATE
// conditioned on the status the caller observed. Zero rows affected means
// either the row vanished (not found) or another transition won the race
// (conflict); we re-read to tell the two apart.
func casUpdate(db *gorm.DB, model any, entity string, id uuid.UUID, from, to string, extra map[string]any) error {
	updates := map[string]any{"status": to}
	for k, v := range extra {
		updates[k] = v
	}

	res := db.Model(model).Where("id = ? AND status = ?", id, from).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return &ConflictError{Entity: entity, Expected: from}
	}
	return nil
}

// TransitionQuestion moves a legal question from -> to, carrying extra
// column updates (answer, lawyer_id) in the same atomic write.
func TransitionQuestion(db *gorm.DB, id uuid.UUID, from, to models.QuestionStatus, extra map[string]any) error {
	if !QuestionCan(from, to) {
		return &InvalidTransitionError{Entity: "legal_question", Current: string(from), Attempted: string(to)}
	}
	return casUpdate(db, &models.LegalQuestion{}, "legal_question", id, string(from), string(to), extra)
}

// TransitionConsultation moves a consultation from -> to.
func TransitionConsultation(db *gorm.DB, id uuid.UUID, from, to models.ConsultationStatus, extra map[string]any) error {
	if !ConsultationCan(from, to) {
		return &InvalidTransitionError{Entity: "consultation", Current: string(from), Attempted: string(to)}
	}
	return casUpdate(db, &models.Consultation{}, "consultation", id, string(from), string(to), extra)
}

// TransitionReport moves an anonymous report from -> to.
func TransitionReport(db *gorm.DB, id uuid.UUID, from, to models.ReportStatus, extra map[string]any) error {
	if !ReportCan(from, to) {
		return &InvalidTransitionError{Entity: "anonymous_report", Current: string(from), Attempted: string(to)}
	}
	return casUpdate(db, &models.AnonymousReport{}, "anonymous_report", id, string(from), string(to), extra)
}

// ApproveReview flips is_approved false -> true. There is no un-approve
// path; approving an already approved review is a no-op for the caller.
// Returns (alreadyApproved, error).
func ApproveReview(db *gorm.DB, id uuid.UUID) (bool, error) {
	res := db.Model(&models.ConsultationReview{}).
		Where("id = ? AND is_approved = ?", id, false).
		Update("is_approved", true)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		var rv models.ConsultationReview
		if err := db.Select("id").First(&rv, "id = ?", id).Error; err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}
