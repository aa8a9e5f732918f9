package models

import (
	"time"

	"github.com/google/uuid"
)

/* =============================== Enums ================================== */

// Role defines the type of user in the system.
type Role string

const (
	RoleClient    Role = "client"
	RoleLawyer    Role = "lawyer"
	RoleParalegal Role = "paralegal"
)

// IsStaff reports whether the role may triage and transition entities it does
// not own (lawyers and paralegals).
func (r Role) IsStaff() bool { return r == RoleLawyer || r == RoleParalegal }

// QuestionStatus defines lifecycle states for a legal question.
type QuestionStatus string

const (
	QuestionPending  QuestionStatus = "pending"
	QuestionAnswered QuestionStatus = "answered"
	QuestionClosed   QuestionStatus = "closed"
)

// ConsultationStatus defines lifecycle states for a consultation.
type ConsultationStatus string

const (
	ConsultationPending   ConsultationStatus = "pending"
	ConsultationConfirmed ConsultationStatus = "confirmed"
	ConsultationCompleted ConsultationStatus = "completed"
	ConsultationCancelled ConsultationStatus = "cancelled"
)

// ConsultationType defines how a consultation is held.
type ConsultationType string

const (
	ConsultationVideo    ConsultationType = "video"
	ConsultationPhone    ConsultationType = "phone"
	ConsultationInPerson ConsultationType = "in_person"
)

// ReportStatus defines lifecycle states for an anonymous report.
type ReportStatus string

const (
	ReportPending     ReportStatus = "pending"
	ReportUnderReview ReportStatus = "under_review"
	ReportResolved    ReportStatus = "resolved"
	ReportClosed      ReportStatus = "closed"
)

// ReportPriority is an independent triage attribute, not part of the report
// state machine.
type ReportPriority string

const (
	PriorityLow    ReportPriority = "low"
	PriorityMedium ReportPriority = "medium"
	PriorityHigh   ReportPriority = "high"
	PriorityUrgent ReportPriority = "urgent"
)

/* =============================== Entities =============================== */

// Profile represents a client, lawyer, or paralegal identity record.
type Profile struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email          string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash   string    `gorm:"not null" json:"-"`
	FullName       string    `gorm:"not null" json:"full_name"`
	Role           Role      `gorm:"type:varchar(20);not null" json:"role"`
	Phone          string    `json:"phone,omitempty"`
	Location       string    `json:"location,omitempty"`
	Specialization string    `json:"specialization,omitempty"`
	BarNumber      string    `json:"bar_number,omitempty"` // meaningful only for lawyers
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// LegalQuestion is a client's request for guidance, triaged by staff.
type LegalQuestion struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ClientID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"client_id"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"not null" json:"description"`
	Category    string         `gorm:"not null" json:"category"`
	Status      QuestionStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`
	Answer      string         `json:"answer,omitempty"`
	LawyerID    *uuid.UUID     `gorm:"type:uuid;index" json:"lawyer_id,omitempty"` // set when answered
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Consultation is a scheduled engagement between a client and a lawyer.
type Consultation struct {
	ID              uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ClientID        uuid.UUID          `gorm:"type:uuid;not null;index" json:"client_id"`
	LawyerID        uuid.UUID          `gorm:"type:uuid;not null;index" json:"lawyer_id"`
	Title           string             `gorm:"not null" json:"title"`
	Description     string             `json:"description,omitempty"`
	Type            ConsultationType   `gorm:"type:varchar(20);not null" json:"consultation_type"`
	ScheduledDate   time.Time          `gorm:"not null" json:"scheduled_date"`
	DurationMinutes int                `gorm:"not null" json:"duration_minutes"`
	Status          ConsultationStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`
	MeetingLink     string             `json:"meeting_link,omitempty"` // assigned on confirm for video
	Location        string             `json:"location,omitempty"`     // required when type = in_person
	PriceCents      int                `gorm:"not null" json:"price_cents"` // stored in cents to avoid float issues
	Notes           string             `json:"notes,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// DocumentTemplate is a shared, staff-authored downloadable form.
type DocumentTemplate struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title         string    `gorm:"not null" json:"title"`
	Description   string    `json:"description,omitempty"`
	Category      string    `gorm:"not null" json:"category"`
	FileKey       string    `gorm:"not null" json:"file_key"` // object store reference
	FileSize      int       `json:"file_size,omitempty"`
	FileType      string    `json:"file_type,omitempty"`
	DownloadCount int       `gorm:"not null;default:0" json:"download_count"` // never decremented
	IsActive      bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedBy     uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UserDocument is a client's private uploaded file. Owner-exclusive.
type UserDocument struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description,omitempty"`
	FileKey     string    `gorm:"not null" json:"file_key"`
	FileSize    int       `json:"file_size,omitempty"`
	FileType    string    `json:"file_type,omitempty"`
	IsPrivate   bool      `gorm:"not null;default:true" json:"is_private"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AnonymousReport is an unauthenticated incident report. It carries no
// submitter identity, ever.
type AnonymousReport struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Category     string         `gorm:"not null" json:"category"`
	Title        string         `gorm:"not null" json:"title"`
	Description  string         `gorm:"not null" json:"description"`
	Location     string         `json:"location,omitempty"`
	IncidentDate *time.Time     `json:"incident_date,omitempty"`
	Status       ReportStatus   `gorm:"type:varchar(20);default:'pending'" json:"status"`
	Priority     ReportPriority `gorm:"type:varchar(20);default:'medium'" json:"priority"`
	AssignedTo   *uuid.UUID     `gorm:"type:uuid" json:"assigned_to,omitempty"` // a lawyer id
	AdminNotes   string         `json:"admin_notes,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ConsultationReview is client feedback tied 1:1 to a completed consultation.
// Hidden from public listings until approved by staff.
type ConsultationReview struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ConsultationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"consultation_id"`
	ClientID       uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	LawyerID       uuid.UUID `gorm:"type:uuid;not null;index" json:"lawyer_id"`
	Rating         int       `gorm:"not null" json:"rating"` // 1..5
	ReviewText     string    `json:"review_text,omitempty"`
	IsApproved     bool      `gorm:"not null;default:false" json:"is_approved"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// WorkflowHistory is an audit log entry for status transitions.
type WorkflowHistory struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	EntityKind string     `gorm:"type:varchar(40);not null;index"`
	EntityID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	ActorID    *uuid.UUID `gorm:"type:uuid;index"` // nil for anonymous actions
	Action     string     `gorm:"type:varchar(50);not null"`
	OldStatus  string     `gorm:"type:varchar(20)"`
	NewStatus  string     `gorm:"type:varchar(20)"`
	Note       string     `gorm:"type:text"`
	CreatedAt  time.Time  `gorm:"autoCreateTime"`
}
