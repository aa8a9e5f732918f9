package reports

import (
	"math"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hakikenya/haki-backend/internal/auth"
	"github.com/hakikenya/haki-backend/internal/notify"
	"github.com/hakikenya/haki-backend/internal/policy"
	"github.com/hakikenya/haki-backend/internal/workflow"
	"github.com/hakikenya/haki-backend/pkg/models"
	"github.com/hakikenya/haki-backend/pkg/sanitize"
	"github.com/hakikenya/haki-backend/pkg/utils"
	"github.com/hakikenya/haki-backend/pkg/validation"
)

/* ================================ DTOs ================================= */

// CreateReportRequest deliberately has no identity fields: reports are
// anonymous by design and the record never stores who filed one.
type CreateReportRequest struct {
	Category     string `json:"category" validate:"required,max=40"`
	Title        string `json:"title" validate:"required,min=5,max=120"`
	Description  string `json:"description" validate:"required,min=20,max=4000"`
	Location     string `json:"location" validate:"omitempty,max=160"`
	IncidentDate string `json:"incident_date" validate:"omitempty"` // YYYY-MM-DD
}

// TriageRequest carries a named transition and/or triage attribute edits.
type TriageRequest struct {
	Action     string `json:"action" validate:"omitempty,oneof=review resolve close"`
	AssignedTo string `json:"assigned_to" validate:"omitempty,uuid4"`
	Priority   string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	AdminNotes string `json:"admin_notes" validate:"omitempty,max=4000"`
}

// ReportItem is the staff listing view with a redacted preview.
type ReportItem struct {
	ID           uuid.UUID             `json:"id"`
	Category     string                `json:"category"`
	Title        string                `json:"title"`
	Preview      string                `json:"preview"`
	Location     string                `json:"location,omitempty"`
	IncidentDate *time.Time            `json:"incident_date,omitempty"`
	Status       models.ReportStatus   `json:"status"`
	Priority     models.ReportPriority `json:"priority"`
	AssignedTo   *uuid.UUID            `json:"assigned_to,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
}

type Handler struct {
	db *gorm.DB
	nd notify.Dispatcher
}

func NewHandler(db *gorm.DB, nd notify.Dispatcher) *Handler {
	return &Handler{db: db, nd: nd}
}

/* =============================== Create ================================= */

// @Summary      File anonymous report
// @Description  Anyone may file; no identity is captured, ever
// @Tags         reports
// @Accept       json
// @Produce      json
// @Param        payload  body  CreateReportRequest  true  "Report payload"
// @Success      201  {object}  map[string]string  "id"
// @Failure      400  {object}  models.ValidationErrorResponse
// @Router       /anonymous-reports [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	if d := policy.CanPerform(auth.Actor(c), policy.CreateReport, policy.Target{}); !d.Allow {
		return fiber.NewError(fiber.StatusForbidden, d.Reason)
	}

	var in CreateReportRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	var incident *time.Time
	if in.IncidentDate != "" {
		t, err := time.Parse("2006-01-02", in.IncidentDate)
		if err != nil {
			return validation.Fail(c, "incident_date", "Must be a YYYY-MM-DD date")
		}
		incident = &t
	}

	r := models.AnonymousReport{
		Category:     strings.TrimSpace(in.Category),
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		Location:     strings.TrimSpace(in.Location),
		IncidentDate: incident,
		Status:       models.ReportPending,
		Priority:     models.PriorityMedium,
	}
	if err := h.db.Create(&r).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": r.ID, "status": r.Status})
}

/* ================================ List ================================== */

// @Summary      List reports
// @Description  Staff lists reports for triage (paginated, status/priority filters)
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        page      query int    false "page"
// @Param        pageSize  query int    false "pageSize"
// @Param        status    query string false "pending|under_review|resolved|closed"
// @Param        priority  query string false "low|medium|high|urgent"
// @Success      200  {object}  map[string]any
// @Failure      403  {object}  models.ErrorResponse
// @Router       /anonymous-reports [get]
func (h *Handler) List(c *fiber.Ctx) error {
	if d := policy.CanPerform(auth.Actor(c), policy.ListReports, policy.Target{}); !d.Allow {
		return fiber.NewError(fiber.StatusForbidden, d.Reason)
	}

	page, size := utils.ParsePage(c)
	q := h.db.Model(&models.AnonymousReport{})
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		switch models.ReportStatus(status) {
		case models.ReportPending, models.ReportUnderReview,
			models.ReportResolved, models.ReportClosed:
			q = q.Where("status = ?", status)
		default:
			return fiber.NewError(fiber.StatusBadRequest, "invalid status filter")
		}
	}
	if priority := strings.TrimSpace(c.Query("priority")); priority != "" {
		switch models.ReportPriority(priority) {
		case models.PriorityLow, models.PriorityMedium,
			models.PriorityHigh, models.PriorityUrgent:
			q = q.Where("priority = ?", priority)
		default:
			return fiber.NewError(fiber.StatusBadRequest, "invalid priority filter")
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	var list []models.AnonymousReport
	if err := q.Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&list).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	items := make([]ReportItem, 0, len(list))
	for _, r := range list {
		items = append(items, ReportItem{
			ID:           r.ID,
			Category:     r.Category,
			Title:        r.Title,
			Preview:      sanitize.Summary(sanitize.RedactPII(r.Description), 240),
			Location:     r.Location,
			IncidentDate: r.IncidentDate,
			Status:       r.Status,
			Priority:     r.Priority,
			AssignedTo:   r.AssignedTo,
			CreatedAt:    r.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{
		"page": page, "pageSize": size, "total": total,
		"pages": int(math.Ceil(float64(total) / float64(size))),
		"items": items,
	})
}

/* =============================== Triage ================================= */

// @Summary      Triage a report
// @Description  Staff transitions a report (review/resolve/close) and/or updates priority, assignee, notes
// @Tags         reports
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string         true  "report id (uuid)"
// @Param        payload  body  TriageRequest  true  "Named transition and triage edits"
// @Success      200  {object}  models.AnonymousReport
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse  "invalid transition or lost race"
// @Router       /anonymous-reports/{id} [put]
func (h *Handler) Triage(c *fiber.Ctx) error {
	actor := auth.Actor(c)
	if d := policy.CanPerform(actor, policy.TriageReport, policy.Target{}); !d.Allow {
		return fiber.NewError(fiber.StatusForbidden, d.Reason)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid report id")
	}

	var in TriageRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	var r models.AnonymousReport
	if err := h.db.First(&r, "id = ?", id).Error; err != nil {
		return err
	}

	extra := map[string]any{}
	if in.AssignedTo != "" {
		assignee, _ := uuid.Parse(in.AssignedTo)
		var cnt int64
		if err := h.db.Model(&models.Profile{}).
			Where("id = ? AND role IN ?", assignee, []models.Role{models.RoleLawyer, models.RoleParalegal}).
			Count(&cnt).Error; err != nil {
			return fiber.ErrInternalServerError
		}
		if cnt == 0 {
			return validation.Fail(c, "assigned_to", "No such staff member")
		}
		extra["assigned_to"] = assignee
	}
	if in.Priority != "" {
		extra["priority"] = in.Priority
	}
	if v := strings.TrimSpace(in.AdminNotes); v != "" {
		extra["admin_notes"] = v
	}

	if in.Action == "" {
		// Attribute-only edit; allowed from any non-terminal state.
		if len(extra) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "nothing to update")
		}
		if workflow.ReportTerminal(r.Status) {
			return fiber.NewError(fiber.StatusConflict, "report is closed")
		}
		if err := h.db.Model(&r).Updates(extra).Error; err != nil {
			return fiber.ErrInternalServerError
		}
	} else {
		var to models.ReportStatus
		switch in.Action {
		case "review":
			to = models.ReportUnderReview
		case "resolve":
			to = models.ReportResolved
		case "close":
			to = models.ReportClosed
		}
		if err := workflow.TransitionReport(h.db, r.ID, r.Status, to, extra); err != nil {
			return err
		}
		utils.LogHistory(c.Context(), h.db, "anonymous_report", r.ID, &actor.ID,
			in.Action, string(r.Status), string(to), "")
		h.nd.Dispatch(c.Context(), notify.Event{
			Kind:     notify.ReportTriaged,
			EntityID: r.ID,
			ActorID:  &actor.ID,
			Message:  "Report moved to " + string(to),
		})
	}

	if err := h.db.First(&r, "id = ?", id).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(r)
}
