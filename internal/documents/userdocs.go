package documents

import (
	"math"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/hakikenya/haki-backend/internal/auth"
	"github.com/hakikenya/haki-backend/internal/policy"
	"github.com/hakikenya/haki-backend/pkg/models"
	"github.com/hakikenya/haki-backend/pkg/utils"
	"github.com/hakikenya/haki-backend/pkg/validation"
)

type UpdateUserDocumentRequest struct {
	Title       string `json:"title" validate:"omitempty,min=1,max=120"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	IsPrivate   *bool  `json:"is_private"`
}

/* ================================ Mine ================================== */

// @Summary      List my documents
// @Description  Owner lists their private uploads (paginated)
// @Tags         user-documents
// @Security     BearerAuth
// @Produce      json
// @Param        page      query int false "page"
// @Param        pageSize  query int false "pageSize"
// @Success      200  {object}  map[string]any
// @Failure      401  {object}  models.ErrorResponse
// @Router       /user-documents/my [get]
func (h *Handler) ListMyDocuments(c *fiber.Ctx) error {
	actor := auth.Actor(c)
	if d := policy.CanPerform(actor, policy.ReadOwnDocuments, policy.Target{OwnerID: actor.ID}); !d.Allow {
		return fiber.NewError(fiber.StatusForbidden, d.Reason)
	}

	page, size := utils.ParsePage(c)
	q := h.db.Model(&models.UserDocument{}).Where("user_id = ?", actor.ID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	rows := make([]models.UserDocument, 0, size)
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

/* =============================== Upload ================================= */

// @Summary      Upload a document
// @Description  Owner uploads a private file (PDF/PNG/DOCX, max 10MB)
// @Tags         user-documents
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        file         formData  file    true   "the file"
// @Param        title        formData  string  true   "title"
// @Param        description  formData  string  false  "description"
// @Success      201  {object}  models.UserDocument
// @Failure      400  {object}  models.ErrorResponse
// @Router       /user-documents [post]
func (h *Handler) CreateUserDocument(c *fiber.Ctx) error {
	actor := auth.Actor(c)
	if d := policy.CanPerform(actor, policy.CreateUserDocument, policy.Target{OwnerID: actor.ID}); !d.Allow {
		return fiber.NewError(fiber.StatusForbidden, d.Reason)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}
	ct, err := checkUpload(fh)
	if err != nil {
		return err
	}

	title := strings.TrimSpace(c.FormValue("title"))
	if title == "" {
		title = fh.Filename
	}

	f, err := fh.Open()
	if err != nil {
		return fiber.ErrInternalServerError
	}
	defer f.Close()

	doc := models.UserDocument{
		UserID:      actor.ID,
		Title:       title,
		Description: strings.TrimSpace(c.FormValue("description")),
		FileSize:    int(fh.Size),
		FileType:    ct,
		IsPrivate:   true,
	}
	doc.ID = uuid.New()
	doc.FileKey = h.sb.UserDocumentKey(actor.ID.String(), doc.ID.String()+"_"+fh.Filename)

	if err := h.sb.Upload(doc.FileKey, f, ct, fh.Size); err != nil {
		return fiber.ErrInternalServerError
	}
	if err := h.db.Create(&doc).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.Status(fiber.StatusCreated).JSON(doc)
}

/* =============================== Update ================================= */

// @Summary      Update document metadata
// @Description  Owner edits title, description, or privacy
// @Tags         user-documents
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                     true  "document id (uuid)"
// @Param        payload  body  UpdateUserDocumentRequest  true  "Fields to change"
// @Success      200  {object}  models.UserDocument
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /user-documents/{id} [put]
func (h *Handler) UpdateUserDocument(c *fiber.Ctx) error {
	actor := auth.Actor(c)
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid document id")
	}

	var doc models.UserDocument
	if err := h.db.First(&doc, "id = ?", id).Error; err != nil {
		return err
	}
	if d := policy.CanPerform(actor, policy.UpdateUserDocument, policy.Target{OwnerID: doc.UserID}); !d.Allow {
		return fiber.NewError(fiber.StatusForbidden, d.Reason)
	}

	var in UpdateUserDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	updates := map[string]any{}
	if v := strings.TrimSpace(in.Title); v != "" {
		updates["title"] = v
	}
	if v := strings.TrimSpace(in.Description); v != "" {
		updates["description"] = v
	}
	if in.IsPrivate != nil {
		updates["is_private"] = *in.IsPrivate
	}
	if len(updates) > 0 {
		if err := h.db.Model(&doc).Updates(updates).Error; err != nil {
			return fiber.ErrInternalServerError
		}
	}
	return c.JSON(doc)
}

/* =============================== Delete ================================= */

// @Summary      Delete a document
// @Description  Owner deletes a private upload (blob removed best-effort first)
// @Tags         user-documents
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "document id (uuid)"
// @Success      200  {object}  map[string]bool
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /user-documents/{id} [delete]
func (h *Handler) DeleteUserDocument(c *fiber.Ctx) error {
	actor := auth.Actor(c)
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid document id")
	}

	var doc models.UserDocument
	if err := h.db.First(&doc, "id = ?", id).Error; err != nil {
		return err
	}
	if d := policy.CanPerform(actor, policy.DeleteUserDocument, policy.Target{OwnerID: doc.UserID}); !d.Allow {
		return fiber.NewError(fiber.StatusForbidden, d.Reason)
	}

	// Blob first, best-effort: an orphaned row is worse than an orphaned blob.
	_ = h.sb.Delete(doc.FileKey)

	if err := h.db.Delete(&doc).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"ok": true})
}
