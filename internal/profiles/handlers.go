package profiles

import (
	"math"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hakikenya/haki-backend/internal/auth"
	"github.com/hakikenya/haki-backend/internal/policy"
	"github.com/hakikenya/haki-backend/pkg/models"
	"github.com/hakikenya/haki-backend/pkg/utils"
	"github.com/hakikenya/haki-backend/pkg/validation"
)

/* ================================ DTOs ================================= */

type UpdateProfileRequest struct {
	FullName       string `json:"full_name" validate:"omitempty,min=2,max=80"`
	Phone          string `json:"phone" validate:"omitempty,max=20"`
	Location       string `json:"location" validate:"omitempty,max=80"`
	Specialization string `json:"specialization" validate:"omitempty,max=80"`
	BarNumber      string `json:"bar_number" validate:"omitempty,barnum"`
}

// LawyerItem is the public directory entry: no email, no phone.
type LawyerItem struct {
	ID             uuid.UUID `json:"id"`
	FullName       string    `json:"full_name"`
	Location       string    `json:"location,omitempty"`
	Specialization string    `json:"specialization,omitempty"`
	BarNumber      string    `json:"bar_number,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type Handler struct{ db *gorm.DB }

func NewHandler(db *gorm.DB) *Handler { return &Handler{db: db} }

/* =============================== Update ================================= */

// @Summary      Update profile
// @Description  Owner (or staff) updates a profile
// @Tags         profiles
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                true  "profile id (uuid)"
// @Param        payload  body  UpdateProfileRequest  true  "Fields to change"
// @Success      200  {object}  models.Profile
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /profiles/{id} [put]
func (h *Handler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid profile id")
	}

	if d := policy.CanPerform(auth.Actor(c), policy.UpdateProfile, policy.Target{OwnerID: id}); !d.Allow {
		return fiber.NewError(fiber.StatusForbidden, d.Reason)
	}

	var in UpdateProfileRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	var p models.Profile
	if err := h.db.First(&p, "id = ?", id).Error; err != nil {
		return err
	}

	updates := map[string]any{}
	if v := strings.TrimSpace(in.FullName); v != "" {
		updates["full_name"] = v
	}
	if v := strings.TrimSpace(in.Phone); v != "" {
		updates["phone"] = v
	}
	if v := strings.TrimSpace(in.Location); v != "" {
		updates["location"] = v
	}
	if v := strings.TrimSpace(in.Specialization); v != "" {
		updates["specialization"] = v
	}
	// bar_number is meaningful only on lawyer profiles
	if v := strings.TrimSpace(in.BarNumber); v != "" && p.Role == models.RoleLawyer {
		updates["bar_number"] = v
	}

	if len(updates) > 0 {
		if err := h.db.Model(&p).Updates(updates).Error; err != nil {
			return fiber.ErrInternalServerError
		}
	}
	return c.JSON(p)
}

/* ========================== Lawyer directory ============================ */

// @Summary      Lawyer directory
// @Description  Public, paginated list of lawyer profiles
// @Tags         profiles
// @Produce      json
// @Param        page            query int    false "page"
// @Param        pageSize        query int    false "pageSize"
// @Param        specialization  query string false "filter by specialization"
// @Param        location        query string false "filter by location"
// @Success      200  {object}  map[string]any
// @Router       /lawyers [get]
func (h *Handler) ListLawyers(c *fiber.Ctx) error {
	page, size := utils.ParsePage(c)

	q := h.db.Model(&models.Profile{}).Where("role = ?", models.RoleLawyer)
	if v := strings.TrimSpace(c.Query("specialization")); v != "" {
		q = q.Where("specialization ILIKE ?", "%"+v+"%")
	}
	if v := strings.TrimSpace(c.Query("location")); v != "" {
		q = q.Where("location ILIKE ?", "%"+v+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	var rows []LawyerItem
	if err := q.Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).
		Scan(&rows).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if rows == nil {
		rows = []LawyerItem{}
	}

	return c.JSON(fiber.Map{
		"page": page, "pageSize": size, "total": total,
		"pages": int(math.Ceil(float64(total) / float64(size))),
		"items": rows,
	})
}
