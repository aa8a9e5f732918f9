// Package policy is the single place that decides who may do what.
// Decisions are pure: no I/O, no store access, no ordering effects.
package policy

import (
	"github.com/google/uuid"

	"github.com/hakikenya/haki-backend/pkg/models"
)

// Action names every operation the API exposes. Anything not granted
// explicitly in CanPerform is denied.
type Action string

const (
	CreateProfile Action = "profile.create"
	UpdateProfile Action = "profile.update"
	ListLawyers   Action = "profile.list_lawyers"

	CreateQuestion         Action = "question.create"
	ReadOwnQuestions       Action = "question.read_own"
	BrowsePendingQuestions Action = "question.browse_pending"
	AnswerQuestion         Action = "question.answer"
	CloseQuestion          Action = "question.close"

	CreateConsultation   Action = "consultation.create"
	ReadOwnConsultations Action = "consultation.read_own"
	ConfirmConsultation  Action = "consultation.confirm"
	CancelConsultation   Action = "consultation.cancel"
	CompleteConsultation Action = "consultation.complete"

	ListTemplates    Action = "template.list"
	CreateTemplate   Action = "template.create"
	DownloadTemplate Action = "template.download"

	CreateUserDocument Action = "user_document.create"
	ReadOwnDocuments   Action = "user_document.read_own"
	UpdateUserDocument Action = "user_document.update"
	DeleteUserDocument Action = "user_document.delete"

	CreateReport Action = "report.create"
	ListReports  Action = "report.list"
	TriageReport Action = "report.triage"

	CreateReview        Action = "review.create"
	ListApprovedReviews Action = "review.list_approved"
	ModerateReview      Action = "review.moderate"
)

// Actor is the caller: an authenticated profile or the anonymous public.
type Actor struct {
	ID            uuid.UUID
	Role          models.Role
	Authenticated bool
}

// Anonymous is the unauthenticated caller.
var Anonymous = Actor{}

// Target carries the ownership facts the policy needs about the entity
// acted on. Zero values mean "no such party".
type Target struct {
	OwnerID  uuid.UUID // client_id / user_id of the entity
	LawyerID uuid.UUID // counterpart lawyer, when relevant
}

// Decision is an allow, or a deny with a reason.
type Decision struct {
	Allow  bool
	Reason string
}

func allowed() Decision      { return Decision{Allow: true} }
func deny(r string) Decision { return Decision{Reason: r} }

// CanPerform decides whether actor may run action against target.
// The grant table here is exhaustive: every permission the system has is
// written out, and everything else falls through to deny.
func CanPerform(actor Actor, action Action, target Target) Decision {
	// Grants available to anyone, signed in or not.
	switch action {
	case CreateProfile, CreateReport, ListTemplates, DownloadTemplate,
		ListApprovedReviews, ListLawyers:
		return allowed()
	}

	if !actor.Authenticated {
		return deny("authentication required")
	}

	owner := actor.ID != uuid.Nil && actor.ID == target.OwnerID
	staff := actor.Role.IsStaff()

	switch action {
	case UpdateProfile:
		if owner || staff {
			return allowed()
		}
		return deny("profile belongs to another user")

	case CreateQuestion, CreateConsultation, CreateUserDocument, CreateReview:
		// Creating always makes the actor the owner; handlers enforce that.
		if owner {
			return allowed()
		}
		return deny("cannot create on behalf of another user")

	case ReadOwnQuestions, ReadOwnDocuments:
		if owner {
			return allowed()
		}
		return deny("not the owner")

	case UpdateUserDocument, DeleteUserDocument:
		// Owner-exclusive: staff have no special access to private files.
		if owner {
			return allowed()
		}
		return deny("not the owner")

	case ReadOwnConsultations:
		if owner || (actor.ID != uuid.Nil && actor.ID == target.LawyerID) {
			return allowed()
		}
		return deny("not a party to this consultation")

	case CancelConsultation:
		if staff || owner {
			return allowed()
		}
		return deny("only a party to the consultation may cancel")

	case BrowsePendingQuestions, AnswerQuestion, CloseQuestion,
		ConfirmConsultation, CompleteConsultation,
		CreateTemplate, ListReports, TriageReport, ModerateReview:
		if staff {
			return allowed()
		}
		return deny("requires lawyer or paralegal role")
	}

	return deny("no grant for this action")
}
