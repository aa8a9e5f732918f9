package consultations

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/hakikenya/haki-backend/internal/auth"
	"github.com/hakikenya/haki-backend/internal/notify"
	"github.com/hakikenya/haki-backend/internal/workflow"
	"github.com/hakikenya/haki-backend/pkg/models"
)

/* ===== helpers ===== */

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	_ = godotenv.Load()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Fatal("TEST_DATABASE_URL is empty")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Profile{}, &models.Consultation{},
		&models.ConsultationReview{}, &models.WorkflowHistory{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		sql := `
TRUNCATE TABLE
	workflow_histories,
	consultation_reviews,
	consultations,
	profiles
RESTART IDENTITY CASCADE`
		if err := db.Exec(sql).Error; err != nil {
			t.Logf("truncate failed (ignored): %v", err)
		}
	})

	return db
}

func seedProfile(t *testing.T, db *gorm.DB, role models.Role) uuid.UUID {
	t.Helper()
	p := models.Profile{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("%s+%s@test.local", role, uuid.NewString()),
		PasswordHash: "x",
		FullName:     "Test " + string(role),
		Role:         role,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatal(err)
	}
	return p.ID
}

func seedConsultation(t *testing.T, db *gorm.DB, clientID, lawyerID uuid.UUID,
	typ models.ConsultationType, status models.ConsultationStatus) uuid.UUID {
	t.Helper()
	cons := models.Consultation{
		ID:              uuid.New(),
		ClientID:        clientID,
		LawyerID:        lawyerID,
		Title:           "Contract review session",
		Type:            typ,
		ScheduledDate:   time.Now().Add(48 * time.Hour),
		DurationMinutes: 60,
		Status:          status,
		PriceCents:      250000,
	}
	if err := db.Create(&cons).Error; err != nil {
		t.Fatal(err)
	}
	return cons.ID
}

func injectAuth(userID uuid.UUID, role string) fiber.Handler {
	id := userID.String()
	return func(c *fiber.Ctx) error {
		c.Locals("userID", id)
		c.Locals("role", role)
		return c.Next()
	}
}

func newTestApp(h *Handler, userID uuid.UUID, role string) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: auth.ErrorHandler})
	app.Use(injectAuth(userID, role))
	app.Post("/api/consultations", h.Create)
	app.Get("/api/consultations/my", h.ListMine)
	app.Put("/api/consultations/:id", h.Update)
	return app
}

/* ================== TESTS ================== */

func Test_Create_InPersonRequiresLocation(t *testing.T) {
	db := openTestDB(t)
	clientID := seedProfile(t, db, models.RoleClient)
	lawyerID := seedProfile(t, db, models.RoleLawyer)

	h := NewHandler(db, notify.NewLog())
	app := newTestApp(h, clientID, string(models.RoleClient))

	when := time.Now().Add(72 * time.Hour).Format(time.RFC3339)
	body := `{
		"lawyer_id":"` + lawyerID.String() + `",
		"title":"Land dispute advice",
		"consultation_type":"in_person",
		"scheduled_date":"` + when + `",
		"duration_minutes":60,
		"price_cents":100000
	}`
	req := httptest.NewRequest("POST", "/api/consultations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	if resp.StatusCode != 400 {
		t.Fatalf("in_person without location must be 400, got %d", resp.StatusCode)
	}
}

func Test_Confirm_VideoAssignsMeetingLink(t *testing.T) {
	db := openTestDB(t)
	clientID := seedProfile(t, db, models.RoleClient)
	lawyerID := seedProfile(t, db, models.RoleLawyer)
	consID := seedConsultation(t, db, clientID, lawyerID,
		models.ConsultationVideo, models.ConsultationPending)

	h := NewHandler(db, notify.NewLog())
	app := newTestApp(h, lawyerID, string(models.RoleLawyer))

	req := httptest.NewRequest("PUT", "/api/consultations/"+consID.String(),
		strings.NewReader(`{"action":"confirm"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	if resp.StatusCode != 200 {
		t.Fatalf("confirm got %d", resp.StatusCode)
	}

	var cons models.Consultation
	if err := db.First(&cons, "id = ?", consID).Error; err != nil {
		t.Fatal(err)
	}
	if cons.Status != models.ConsultationConfirmed {
		t.Fatalf("want confirmed, got %s", cons.Status)
	}
	if !strings.HasPrefix(cons.MeetingLink, "https://meet.jit.si/haki-") {
		t.Fatalf("video confirm must assign a meeting link, got %q", cons.MeetingLink)
	}
}

func Test_Client_CannotConfirm_ButCanCancel(t *testing.T) {
	db := openTestDB(t)
	clientID := seedProfile(t, db, models.RoleClient)
	lawyerID := seedProfile(t, db, models.RoleLawyer)
	consID := seedConsultation(t, db, clientID, lawyerID,
		models.ConsultationPhone, models.ConsultationPending)

	h := NewHandler(db, notify.NewLog())
	app := newTestApp(h, clientID, string(models.RoleClient))

	req := httptest.NewRequest("PUT", "/api/consultations/"+consID.String(),
		strings.NewReader(`{"action":"confirm"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	if resp.StatusCode != 403 {
		t.Fatalf("client confirm must be 403, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("PUT", "/api/consultations/"+consID.String(),
		strings.NewReader(`{"action":"cancel"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	if resp.StatusCode != 200 {
		t.Fatalf("client cancel got %d", resp.StatusCode)
	}

	var cons models.Consultation
	_ = db.First(&cons, "id = ?", consID).Error
	if cons.Status != models.ConsultationCancelled {
		t.Fatalf("want cancelled, got %s", cons.Status)
	}
}

func Test_Complete_FromPending_Conflict(t *testing.T) {
	db := openTestDB(t)
	clientID := seedProfile(t, db, models.RoleClient)
	lawyerID := seedProfile(t, db, models.RoleLawyer)
	consID := seedConsultation(t, db, clientID, lawyerID,
		models.ConsultationPhone, models.ConsultationPending)

	h := NewHandler(db, notify.NewLog())
	app := newTestApp(h, lawyerID, string(models.RoleLawyer))

	req := httptest.NewRequest("PUT", "/api/consultations/"+consID.String(),
		strings.NewReader(`{"action":"complete"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	if resp.StatusCode != 409 {
		t.Fatalf("pending -> completed must be 409, got %d", resp.StatusCode)
	}

	var out models.ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if out.Code != "INVALID_TRANSITION" {
		t.Fatalf("want INVALID_TRANSITION, got %q", out.Code)
	}
}

func Test_LostRace_SurfacesConflict(t *testing.T) {
	db := openTestDB(t)
	clientID := seedProfile(t, db, models.RoleClient)
	lawyerID := seedProfile(t, db, models.RoleLawyer)
	consID := seedConsultation(t, db, clientID, lawyerID,
		models.ConsultationPhone, models.ConsultationPending)

	// Both observed "pending". The first write wins; the second must see a
	// conflict instead of silently resurrecting the consultation.
	if err := workflow.TransitionConsultation(db, consID,
		models.ConsultationPending, models.ConsultationCancelled, nil); err != nil {
		t.Fatalf("first transition: %v", err)
	}
	err := workflow.TransitionConsultation(db, consID,
		models.ConsultationPending, models.ConsultationConfirmed, nil)
	var conflict *workflow.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("want ConflictError, got %v", err)
	}

	var cons models.Consultation
	_ = db.First(&cons, "id = ?", consID).Error
	if cons.Status != models.ConsultationCancelled {
		t.Fatalf("first writer must win, got %s", cons.Status)
	}
}
