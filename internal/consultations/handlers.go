package consultations

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
	"github.com/hakikenya/haki-backend/pkg/utils"
	"github.com/hakikenya/haki-backend/pkg/validation"
)

/* ================================ DTOs ================================= */

type CreateConsultationRequest struct {
	LawyerID        string `json:"lawyer_id" validate:"required,uuid4"`
	Title           string `json:"title" validate:"required,min=5,max=120"`
	Description     string `json:"description" validate:"omitempty,max=2000"`
	Type            string `json:"consultation_type" validate:"required,oneof=video phone in_person"`
	ScheduledDate   string `json:"scheduled_date" validate:"required"` // RFC3339, must be in the future
	DurationMinutes int    `json:"duration_minutes" validate:"required,gte=15,lte=480"`
	Location        string `json:"location" validate:"omitempty,max=160"`
	PriceCents      int    `json:"price_cents" validate:"gte=0"`
	Notes           string `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateConsultationRequest carries a named transition, never a raw status.
type UpdateConsultationRequest struct {
	Action string `json:"action" validate:"required,oneof=confirm cancel complete"`
	Notes  string `json:"notes" validate:"omitempty,max=2000"`
}

type Handler struct {
	db *gorm.DB
	nd notify.Dispatcher
}

func NewHandler(db *gorm.DB, nd notify.Dispatcher) *Handler {
	return &Handler{db: db, nd: nd}
}

/* =============================== Create ================================= */

// @Summary      Book consultation
// @Description  Client books a consultation with a lawyer; it starts in pending
// @Tags         consultations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  CreateConsultationRequest  true  "Booking payload"
// @Success      201  {object}  map[string]string  "id"
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /consultations [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	actor := auth.Actor(c)
	if d := policy.CanPerform(actor, policy.CreateConsultation, policy.Target{OwnerID: actor.ID}); !d.Allow {
		return fiber.NewError(fiber.StatusForbidden, d.Reason)
	}

	var in CreateConsultationRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	// location is required only for in-person consultations
	if in.Type == string(models.ConsultationInPerson) && strings.TrimSpace(in.Location) == "" {
		return validation.Fail(c, "location", "Location is required for in-person consultations")
	}

	when, err := time.Parse(time.RFC3339, in.ScheduledDate)
	if err != nil {
		return validation.Fail(c, "scheduled_date", "Must be an RFC3339 timestamp")
	}
	if !when.After(time.Now()) {
		return validation.Fail(c, "scheduled_date", "Must be in the future")
	}

	lawyerID, _ := uuid.Parse(in.LawyerID)
	var lawyer models.Profile
	if err := h.db.First(&lawyer, "id = ? AND role = ?", lawyerID, models.RoleLawyer).Error; err != nil {
		return validation.Fail(c, "lawyer_id", "No such lawyer")
	}

	cons := models.Consultation{
		ClientID:        actor.ID,
		LawyerID:        lawyerID,
		Title:           strings.TrimSpace(in.Title),
		Description:     strings.TrimSpace(in.Description),
		Type:            models.ConsultationType(in.Type),
		ScheduledDate:   when,
		DurationMinutes: in.DurationMinutes,
		Status:          models.ConsultationPending,
		Location:        strings.TrimSpace(in.Location),
		PriceCents:      in.PriceCents,
		Notes:           strings.TrimSpace(in.Notes),
	}
	if err := h.db.Create(&cons).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": cons.ID, "status": cons.Status})
}

/* ================================ Mine ================================== */

// @Summary      List my consultations
// @Description  Clients see their bookings; lawyers see consultations assigned to them
// @Tags         consultations
// @Security     BearerAuth
// @Produce      json
// @Param        page      query int    false "page"
// @Param        pageSize  query int    false "pageSize"
// @Param        status    query string false "pending|confirmed|completed|cancelled"
// @Success      200  {object}  map[string]any
// @Failure      401  {object}  models.ErrorResponse
// @Router       /consultations/my [get]
func (h *Handler) ListMine(c *fiber.Ctx) error {
	actor := auth.Actor(c)
	if !actor.Authenticated {
		return fiber.ErrUnauthorized
	}

	page, size := utils.ParsePage(c)
	q := h.db.Model(&models.Consultation{})
	if actor.Role == models.RoleLawyer {
		q = q.Where("lawyer_id = ?", actor.ID)
	} else {
		q = q.Where("client_id = ?", actor.ID)
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		switch models.ConsultationStatus(status) {
		case models.ConsultationPending, models.ConsultationConfirmed,
			models.ConsultationCompleted, models.ConsultationCancelled:
			q = q.Where("status = ?", status)
		default:
			return fiber.NewError(fiber.StatusBadRequest, "invalid status filter")
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	rows := make([]models.Consultation, 0, size)
	if err := q.Order("scheduled_date DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&rows).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	return c.JSON(fiber.Map{
		"page": page, "pageSize": size, "total": total,
		"pages": int(math.Ceil(float64(total) / float64(size))),
		"items": rows,
	})
}

/* ============================== Transition ============================== */

// @Summary      Confirm, cancel, or complete a consultation
// @Description  Staff confirms/completes; either party may cancel. Confirming a video consultation assigns a meeting link.
// @Tags         consultations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                     true  "consultation id (uuid)"
// @Param        payload  body  UpdateConsultationRequest  true  "Named transition"
// @Success      200  {object}  models.Consultation
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse  "invalid transition or lost race"
// @Router       /consultations/{id} [put]
func (h *Handler) Update(c *fiber.Ctx) error {
	actor := auth.Actor(c)
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid consultation id")
	}

	var in UpdateConsultationRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	var cons models.Consultation
	if err := h.db.First(&cons, "id = ?", id).Error; err != nil {
		return err
	}
	target := policy.Target{OwnerID: cons.ClientID, LawyerID: cons.LawyerID}

	var (
		action policy.Action
		to     models.ConsultationStatus
		kind   string
		msg    string
	)
	switch in.Action {
	case "confirm":
		action, to = policy.ConfirmConsultation, models.ConsultationConfirmed
		kind, msg = notify.ConsultationConfirmed, "Your consultation has been confirmed"
	case "cancel":
		action, to = policy.CancelConsultation, models.ConsultationCancelled
		kind, msg = notify.ConsultationCancelled, "Your consultation was cancelled"
	case "complete":
		action, to = policy.CompleteConsultation, models.ConsultationCompleted
		kind, msg = notify.ConsultationCompleted, "Your consultation was marked completed"
	}
	if d := policy.CanPerform(actor, action, target); !d.Allow {
		return fiber.NewError(fiber.StatusForbidden, d.Reason)
	}

	extra := map[string]any{}
	if v := strings.TrimSpace(in.Notes); v != "" {
		extra["notes"] = v
	}
	// Confirming a video consultation assigns the meeting link.
	if to == models.ConsultationConfirmed && cons.Type == models.ConsultationVideo {
		extra["meeting_link"] = "https://meet.jit.si/haki-" + uuid.NewString()
	}

	if err := workflow.TransitionConsultation(h.db, cons.ID, cons.Status, to, extra); err != nil {
		return err
	}
	utils.LogHistory(c.Context(), h.db, "consultation", cons.ID, &actor.ID,
		in.Action, string(cons.Status), string(to), "")
	h.nd.Dispatch(c.Context(), notify.Event{
		Kind:     kind,
		EntityID: cons.ID,
		ActorID:  &actor.ID,
		Message:  msg,
	})

	if err := h.db.First(&cons, "id = ?", id).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(cons)
}
