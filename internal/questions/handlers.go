package questions

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

type CreateQuestionRequest struct {
	Title       string `json:"title" validate:"required,min=10,max=120"`
	Category    string `json:"category" validate:"required,max=40"`
	Description string `json:"description" validate:"required,min=50,max=2000"`
}

// UpdateQuestionRequest carries a named transition, never a raw status.
type UpdateQuestionRequest struct {
	Action string `json:"action" validate:"required,oneof=answer close"`
	Answer string `json:"answer" validate:"omitempty,max=5000"`
}

// PendingItem is the staff triage view: identity-free, redacted preview.
type PendingItem struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	Preview   string    `json:"preview"`
}

type Handler struct {
	db *gorm.DB
	nd notify.Dispatcher
}

func NewHandler(db *gorm.DB, nd notify.Dispatcher) *Handler {
	return &Handler{db: db, nd: nd}
}

/* =============================== Create ================================= */

// @Summary      Submit legal question
// @Description  Client submits a new question; it starts in pending
// @Tags         questions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  CreateQuestionRequest  true  "Question payload"
// @Success      201  {object}  map[string]string  "id"
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /legal-questions [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	actor := auth.Actor(c)
	if d := policy.CanPerform(actor, policy.CreateQuestion, policy.Target{OwnerID: actor.ID}); !d.Allow {
		return fiber.NewError(fiber.StatusForbidden, d.Reason)
	}

	var in CreateQuestionRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	q := models.LegalQuestion{
		ClientID:    actor.ID,
		Title:       strings.TrimSpace(in.Title),
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		Status:      models.QuestionPending,
	}
	if err := h.db.Create(&q).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": q.ID, "status": q.Status})
}

/* ================================ Mine ================================== */

// @Summary      List my questions
// @Description  Client lists their own questions (paginated, optional status filter)
// @Tags         questions
// @Security     BearerAuth
// @Produce      json
// @Param        page      query int    false "page"
// @Param        pageSize  query int    false "pageSize"
// @Param        status    query string false "pending|answered|closed"
// @Success      200  {object}  map[string]any
// @Failure      401  {object}  models.ErrorResponse
// @Router       /legal-questions/my [get]
func (h *Handler) ListMine(c *fiber.Ctx) error {
	actor := auth.Actor(c)
	if d := policy.CanPerform(actor, policy.ReadOwnQuestions, policy.Target{OwnerID: actor.ID}); !d.Allow {
		return fiber.NewError(fiber.StatusForbidden, d.Reason)
	}

	page, size := utils.ParsePage(c)
	q := h.db.Model(&models.LegalQuestion{}).Where("client_id = ?", actor.ID)
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		switch models.QuestionStatus(status) {
		case models.QuestionPending, models.QuestionAnswered, models.QuestionClosed:
			q = q.Where("status = ?", status)
		default:
			return fiber.NewError(fiber.StatusBadRequest, "invalid status filter")
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	rows := make([]models.LegalQuestion, 0, size)
	if err := q.Order("created_at DESC").
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

/* =============================== Pending ================================ */

// @Summary      Browse pending questions
// @Description  Staff browses the pending queue (anonymized previews)
// @Tags         questions
// @Security     BearerAuth
// @Produce      json
// @Param        page      query int    false "page"
// @Param        pageSize  query int    false "pageSize"
// @Param        category  query string false "category"
// @Success      200  {object}  map[string]any
// @Failure      403  {object}  models.ErrorResponse
// @Router       /legal-questions/pending [get]
func (h *Handler) ListPending(c *fiber.Ctx) error {
	if d := policy.CanPerform(auth.Actor(c), policy.BrowsePendingQuestions, policy.Target{}); !d.Allow {
		return fiber.NewError(fiber.StatusForbidden, d.Reason)
	}

	page, size := utils.ParsePage(c)
	q := h.db.Model(&models.LegalQuestion{}).Where("status = ?", models.QuestionPending)
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		q = q.Where("category = ?", category)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	var list []models.LegalQuestion
	if err := q.Order("created_at ASC").
		Offset((page - 1) * size).Limit(size).
		Find(&list).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	items := make([]PendingItem, 0, len(list))
	for _, lq := range list {
		items = append(items, PendingItem{
			ID:        lq.ID,
			Title:     lq.Title,
			Category:  lq.Category,
			CreatedAt: lq.CreatedAt,
			Preview:   sanitize.Summary(sanitize.RedactPII(lq.Description), 240),
		})
	}

	return c.JSON(fiber.Map{
		"page": page, "pageSize": size, "total": total,
		"pages": int(math.Ceil(float64(total) / float64(size))),
		"items": items,
	})
}

/* ============================== Transition ============================== */

// @Summary      Answer or close a question
// @Description  Staff answers a pending question or closes it
// @Tags         questions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                 true  "question id (uuid)"
// @Param        payload  body  UpdateQuestionRequest  true  "Named transition"
// @Success      200  {object}  models.LegalQuestion
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse  "invalid transition or lost race"
// @Router       /legal-questions/{id} [put]
func (h *Handler) Update(c *fiber.Ctx) error {
	actor := auth.Actor(c)
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid question id")
	}

	var in UpdateQuestionRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	action := policy.CloseQuestion
	if in.Action == "answer" {
		action = policy.AnswerQuestion
	}
	if d := policy.CanPerform(actor, action, policy.Target{}); !d.Allow {
		return fiber.NewError(fiber.StatusForbidden, d.Reason)
	}

	var q models.LegalQuestion
	if err := h.db.First(&q, "id = ?", id).Error; err != nil {
		return err
	}

	switch in.Action {
	case "answer":
		answer := strings.TrimSpace(in.Answer)
		if answer == "" {
			return validation.Fail(c, "answer", "An answer is required to mark a question answered")
		}
		if err := workflow.TransitionQuestion(h.db, q.ID, q.Status, models.QuestionAnswered, map[string]any{
			"answer":    answer,
			"lawyer_id": actor.ID,
		}); err != nil {
			return err
		}
		utils.LogHistory(c.Context(), h.db, "legal_question", q.ID, &actor.ID,
			"answered", string(q.Status), string(models.QuestionAnswered), "")
		h.nd.Dispatch(c.Context(), notify.Event{
			Kind:     notify.QuestionAnswered,
			EntityID: q.ID,
			ActorID:  &actor.ID,
			Message:  "Your legal question has been answered",
		})
	case "close":
		if err := workflow.TransitionQuestion(h.db, q.ID, q.Status, models.QuestionClosed, nil); err != nil {
			return err
		}
		utils.LogHistory(c.Context(), h.db, "legal_question", q.ID, &actor.ID,
			"closed", string(q.Status), string(models.QuestionClosed), "")
		h.nd.Dispatch(c.Context(), notify.Event{
			Kind:     notify.QuestionClosed,
			EntityID: q.ID,
			ActorID:  &actor.ID,
			Message:  "Your legal question was closed",
		})
	}

	if err := h.db.First(&q, "id = ?", id).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(q)
}
