package auth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/hakikenya/haki-backend/pkg/models"
	"github.com/hakikenya/haki-backend/pkg/validation"
)

/* ================================ DTOs ================================= */

// Request body for /auth/signup
type SignupRequest struct {
	Role     string `json:"role" validate:"required,oneof=client lawyer paralegal"`
	FullName string `json:"full_name" validate:"required,min=2,max=80"`
	Email    string `json:"email" validate:"required,email,max=120"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	// Optional profile fields
	Phone          string `json:"phone" validate:"omitempty,max=20"`
	Location       string `json:"location" validate:"omitempty,max=80"`
	Specialization string `json:"specialization" validate:"omitempty,max=80"`
	// Lawyers only
	BarNumber string `json:"bar_number" validate:"omitempty,barnum"`
}

// Request body for /auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=120"`
	Password string `json:"password" validate:"required"`
}

// Standard auth response
type AuthResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// Profile response for /auth/me
type ProfileResponse struct {
	ID             uuid.UUID   `json:"id"`
	Email          string      `json:"email"`
	Role           models.Role `json:"role"`
	FullName       string      `json:"full_name"`
	Phone          string      `json:"phone,omitempty"`
	Location       string      `json:"location,omitempty"`
	Specialization string      `json:"specialization,omitempty"`
	BarNumber      string      `json:"bar_number,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

/* ============================== Handler ================================= */

type Handler struct {
	db       *gorm.DB
	tokenTTL time.Duration
}

func NewHandler(db *gorm.DB, tokenTTL time.Duration) *Handler {
	return &Handler{db: db, tokenTTL: tokenTTL}
}

func (h *Handler) setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		Expires:  time.Now().Add(h.tokenTTL),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
}

/* =============================== Signup ================================= */

// @Summary      Sign up
// @Description  Register a new profile (client, lawyer, or paralegal)
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body  SignupRequest  true  "Signup payload"
// @Success      201      {object}  AuthResponse
// @Failure      400      {object}  models.ValidationErrorResponse
// @Failure      409      {object}  models.ErrorResponse  "email already exists"
// @Router       /auth/signup [post]
func (h *Handler) Signup(c *fiber.Ctx) error {
	var in SignupRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}

	// Normalize email
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	// bar_number is meaningful only for lawyers
	if in.Role != string(models.RoleLawyer) {
		in.BarNumber = ""
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)

	p := models.Profile{
		Email:          in.Email,
		PasswordHash:   string(hash),
		FullName:       strings.TrimSpace(in.FullName),
		Role:           models.Role(in.Role),
		Phone:          strings.TrimSpace(in.Phone),
		Location:       strings.TrimSpace(in.Location),
		Specialization: strings.TrimSpace(in.Specialization),
		BarNumber:      strings.TrimSpace(in.BarNumber),
	}
	if err := h.db.Create(&p).Error; err != nil {
		return fiber.NewError(fiber.StatusConflict, "email already exists")
	}

	token, _ := IssueToken(p.ID.String(), string(p.Role), h.tokenTTL)
	h.setSessionCookie(c, token)
	return c.Status(fiber.StatusCreated).JSON(AuthResponse{Token: token, Role: string(p.Role)})
}

/* ================================ Login ================================= */

// @Summary      Login
// @Description  Authenticate and receive a session cookie plus JWT
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body  LoginRequest  true  "Login payload"
// @Success      200      {object}  AuthResponse
// @Failure      400      {object}  models.ValidationErrorResponse
// @Failure      401      {object}  models.ErrorResponse
// @Router       /auth/login [post]
func (h *Handler) Login(c *fiber.Ctx) error {
	var in LoginRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	var p models.Profile
	if err := h.db.Where("email = ?", in.Email).First(&p).Error; err != nil {
		return fiber.ErrUnauthorized
	}

	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(in.Password)) != nil {
		return fiber.ErrUnauthorized
	}

	token, _ := IssueToken(p.ID.String(), string(p.Role), h.tokenTTL)
	h.setSessionCookie(c, token)
	return c.JSON(AuthResponse{Token: token, Role: string(p.Role)})
}

/* =============================== Logout ================================= */

// @Summary      Logout
// @Description  Clear the session cookie
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Router       /auth/logout [post]
func (h *Handler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
	return c.JSON(fiber.Map{"ok": true})
}

/* ================================= Me =================================== */

// @Summary      Get current profile
// @Description  Return the full profile of the authenticated user
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  ProfileResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /auth/me [get]
func (h *Handler) Me(c *fiber.Ctx) error {
	userID := c.Locals("userID")
	if userID == nil {
		return fiber.ErrUnauthorized
	}

	var p models.Profile
	if err := h.db.First(&p, "id = ?", userID).Error; err != nil {
		return fiber.ErrUnauthorized
	}

	return c.JSON(ProfileResponse{
		ID:             p.ID,
		Email:          p.Email,
		Role:           p.Role,
		FullName:       p.FullName,
		Phone:          p.Phone,
		Location:       p.Location,
		Specialization: p.Specialization,
		BarNumber:      p.BarNumber,
		CreatedAt:      p.CreatedAt,
	})
}
