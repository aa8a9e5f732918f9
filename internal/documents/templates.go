// Package documents serves shared document templates and private user
// uploads. File bytes live in the object store; handlers traffic only in
// object keys and signed URLs.
package documents

import (
	"math"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hakikenya/haki-backend/internal/auth"
	"github.com/hakikenya/haki-backend/internal/policy"
	"github.com/hakikenya/haki-backend/internal/storage"
	"github.com/hakikenya/haki-backend/pkg/models"
	"github.com/hakikenya/haki-backend/pkg/utils"
	"github.com/hakikenya/haki-backend/pkg/validation"
)

const (
	maxFileSize  = 10 * 1024 * 1024
	signedURLTTL = 60 // seconds
)

type Handler struct {
	db *gorm.DB
	sb *storage.Supabase
}

func NewHandler(db *gorm.DB, sb *storage.Supabase) *Handler {
	return &Handler{db: db, sb: sb}
}

// checkUpload validates one multipart file and returns its content type.
func checkUpload(fh *multipart.FileHeader) (string, error) {
	if fh.Size <= 0 {
		return "", fiber.NewError(fiber.StatusBadRequest, "empty file")
	}
	if fh.Size > maxFileSize {
		return "", fiber.NewError(fiber.StatusRequestEntityTooLarge, "max 10MB per file")
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = mime.TypeByExtension(filepath.Ext(fh.Filename))
	}
	switch ct {
	case "application/pdf", "image/png",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return ct, nil
	default:
		return "", fiber.NewError(fiber.StatusBadRequest, "only PDF, PNG, or DOCX are allowed")
	}
}

/* =========================== Template listing =========================== */

// @Summary      List document templates
// @Description  Public, paginated list of active templates
// @Tags         templates
// @Produce      json
// @Param        page      query int    false "page"
// @Param        pageSize  query int    false "pageSize"
// @Param        category  query string false "category"
// @Success      200  {object}  map[string]any
// @Router       /document-templates [get]
func (h *Handler) ListTemplates(c *fiber.Ctx) error {
	page, size := utils.ParsePage(c)

	q := h.db.Model(&models.DocumentTemplate{}).Where("is_active = ?", true)
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		q = q.Where("category = ?", category)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	rows := make([]models.DocumentTemplate, 0, size)
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

/* =========================== Template create ============================ */

// @Summary      Publish document template
// @Description  Staff uploads a template file plus metadata
// @Tags         templates
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        file         formData  file    true   "PDF/PNG/DOCX, max 10MB"
// @Param        title        formData  string  true   "title"
// @Param        category     formData  string  true   "category"
// @Param        description  formData  string  false  "description"
// @Success      201  {object}  models.DocumentTemplate
// @Failure      400  {object}  models.ErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Router       /document-templates [post]
func (h *Handler) CreateTemplate(c *fiber.Ctx) error {
	actor := auth.Actor(c)
	if d := policy.CanPerform(actor, policy.CreateTemplate, policy.Target{}); !d.Allow {
		return fiber.NewError(fiber.StatusForbidden, d.Reason)
	}

	title := strings.TrimSpace(c.FormValue("title"))
	category := strings.TrimSpace(c.FormValue("category"))
	if title == "" || category == "" {
		return validation.Respond(c, map[string][]string{
			"title":    {"This field is required"},
			"category": {"This field is required"},
		})
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}
	ct, err := checkUpload(fh)
	if err != nil {
		return err
	}

	f, err := fh.Open()
	if err != nil {
		return fiber.ErrInternalServerError
	}
	defer f.Close()

	tpl := models.DocumentTemplate{
		Title:       title,
		Description: strings.TrimSpace(c.FormValue("description")),
		Category:    category,
		FileSize:    int(fh.Size),
		FileType:    ct,
		IsActive:    true,
		CreatedBy:   actor.ID,
	}
	tpl.ID = uuid.New()
	tpl.FileKey = h.sb.TemplateKey(tpl.ID.String(), fh.Filename)

	if err := h.sb.Upload(tpl.FileKey, f, ct, fh.Size); err != nil {
		return fiber.ErrInternalServerError
	}
	if err := h.db.Create(&tpl).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.Status(fiber.StatusCreated).JSON(tpl)
}

/* ========================== Template download =========================== */

// @Summary      Download a template
// @Description  Returns a short-lived signed URL and bumps the download counter
// @Tags         templates
// @Produce      json
// @Param        id  path  string  true  "template id (uuid)"
// @Success      200  {object}  map[string]any  "url, expires_in"
// @Failure      404  {object}  models.ErrorResponse
// @Router       /document-templates/{id}/download [get]
func (h *Handler) DownloadTemplate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid template id")
	}

	var tpl models.DocumentTemplate
	if err := h.db.First(&tpl, "id = ? AND is_active = ?", id, true).Error; err != nil {
		return err
	}

	url, err := h.sb.SignedURL(tpl.FileKey, signedURLTTL)
	if err != nil {
		return fiber.ErrInternalServerError
	}

	// The counter only ever goes up; the increment rides on the DB, not a
	// read-modify-write in Go.
	if err := h.db.Model(&tpl).
		UpdateColumn("download_count", gorm.Expr("download_count + 1")).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	return c.JSON(fiber.Map{"url": url, "expires_in": signedURLTTL, "now": time.Now().UTC()})
}
