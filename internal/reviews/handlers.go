package reviews

import (
	"math"
	"strings"

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

type CreateReviewRequest struct {
	ConsultationID string `json:"consultation_id" validate:"required,uuid4"`
	Rating         int    `json:"rating" validate:"required,gte=1,lte=5"`
	ReviewText     string `json:"review_text" validate:"omitempty,max=2000"`
}

// ModerateReviewRequest carries the one moderation action there is.
type ModerateReviewRequest struct {
	Action string `json:"action" validate:"required,oneof=approve"`
}

type Handler struct {
	db *gorm.DB
	nd notify.Dispatcher
}

func NewHandler(db *gorm.DB, nd notify.Dispatcher) *Handler {
	return &Handler{db: db, nd: nd}
}

/* =============================== Create ================================= */

// @Summary      Submit review
// @Description  Client reviews their completed consultation; one review per consultation
// @Tags         reviews
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  CreateReviewRequest  true  "Review payload"
// @Success      201  {object}  models.ConsultationReview
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse  "review already exists"
// @Router       /consultation-reviews [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	actor := auth.Actor(c)

	var in CreateReviewRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	consultationID, _ := uuid.Parse(in.ConsultationID)
	var cons models.Consultation
	if err := h.db.First(&cons, "id = ?", consultationID).Error; err != nil {
		return err
	}

	if d := policy.CanPerform(actor, policy.CreateReview, policy.Target{OwnerID: cons.ClientID}); !d.Allow {
		return fiber.NewError(fiber.StatusForbidden, d.Reason)
	}

	// Reviews exist only for consultations that actually happened.
	if cons.Status != models.ConsultationCompleted {
		return validation.Fail(c, "consultation_id", "Consultation must be completed before it can be reviewed")
	}

	rv := models.ConsultationReview{
		ConsultationID: cons.ID,
		ClientID:       cons.ClientID,
		LawyerID:       cons.LawyerID,
		Rating:         in.Rating,
		ReviewText:     strings.TrimSpace(in.ReviewText),
		IsApproved:     false,
	}
	if err := h.db.Create(&rv).Error; err != nil {
		// unique index on consultation_id: one review per consultation
		return fiber.NewError(fiber.StatusConflict, "a review already exists for this consultation")
	}
	return c.Status(fiber.StatusCreated).JSON(rv)
}

/* ============================ Public listings =========================== */

// @Summary      Reviews for a lawyer
// @Description  Public, approved reviews for one lawyer, with average rating
// @Tags         reviews
// @Produce      json
// @Param        id        path  string true  "lawyer id (uuid)"
// @Param        page      query int    false "page"
// @Param        pageSize  query int    false "pageSize"
// @Success      200  {object}  map[string]any
// @Router       /consultation-reviews/lawyer/{id} [get]
func (h *Handler) ListByLawyer(c *fiber.Ctx) error {
	lawyerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid lawyer id")
	}

	page, size := utils.ParsePage(c)
	q := h.db.Model(&models.ConsultationReview{}).
		Where("lawyer_id = ? AND is_approved = ?", lawyerID, true)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	var avg struct{ AvgRating float64 }
	if err := h.db.Model(&models.ConsultationReview{}).
		Select("COALESCE(AVG(rating), 0) AS avg_rating").
		Where("lawyer_id = ? AND is_approved = ?", lawyerID, true).
		Scan(&avg).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	rows := make([]models.ConsultationReview, 0, size)
	if err := q.Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&rows).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	return c.JSON(fiber.Map{
		"page": page, "pageSize": size, "total": total,
		"pages":          int(math.Ceil(float64(total) / float64(size))),
		"average_rating": avg.AvgRating,
		"items":          rows,
	})
}

// @Summary      Approved reviews
// @Description  Public moderated review feed
// @Tags         reviews
// @Produce      json
// @Param        page      query int false "page"
// @Param        pageSize  query int false "pageSize"
// @Success      200  {object}  map[string]any
// @Router       /consultation-reviews/approved [get]
func (h *Handler) ListApproved(c *fiber.Ctx) error {
	page, size := utils.ParsePage(c)
	q := h.db.Model(&models.ConsultationReview{}).Where("is_approved = ?", true)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	rows := make([]models.ConsultationReview, 0, size)
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

/* ============================== Moderation ============================== */

// @Summary      Approve a review
// @Description  Staff approves a review for public display; approving twice is a no-op
// @Tags         reviews
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                 true  "review id (uuid)"
// @Param        payload  body  ModerateReviewRequest  true  "Moderation action"
// @Success      200  {object}  map[string]any
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /consultation-reviews/{id} [put]
func (h *Handler) Moderate(c *fiber.Ctx) error {
	actor := auth.Actor(c)
	if d := policy.CanPerform(actor, policy.ModerateReview, policy.Target{}); !d.Allow {
		return fiber.NewError(fiber.StatusForbidden, d.Reason)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid review id")
	}

	var in ModerateReviewRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	already, err := workflow.ApproveReview(h.db, id)
	if err != nil {
		return err
	}
	if !already {
		h.nd.Dispatch(c.Context(), notify.Event{
			Kind:     notify.ReviewApproved,
			EntityID: id,
			ActorID:  &actor.ID,
			Message:  "Your review is now public",
		})
	}
	return c.JSON(fiber.Map{"ok": true, "already_approved": already})
}
