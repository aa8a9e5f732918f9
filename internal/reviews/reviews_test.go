package reviews

import (
	"encoding/json"
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
		&models.Profile{}, &models.Consultation{}, &models.ConsultationReview{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		sql := `
TRUNCATE TABLE
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

type seedOut struct {
	ClientID uuid.UUID
	LawyerID uuid.UUID
	ConsID   uuid.UUID
}

func seedConsultation(t *testing.T, db *gorm.DB, status models.ConsultationStatus) seedOut {
	t.Helper()
	clientID := uuid.New()
	lawyerID := uuid.New()

	for _, p := range []models.Profile{
		{ID: clientID, Email: fmt.Sprintf("c+%s@test.local", uuid.NewString()), PasswordHash: "x", FullName: "C", Role: models.RoleClient},
		{ID: lawyerID, Email: fmt.Sprintf("l+%s@test.local", uuid.NewString()), PasswordHash: "x", FullName: "L", Role: models.RoleLawyer},
	} {
		if err := db.Create(&p).Error; err != nil {
			t.Fatal(err)
		}
	}

	cons := models.Consultation{
		ID:              uuid.New(),
		ClientID:        clientID,
		LawyerID:        lawyerID,
		Title:           "Session",
		Type:            models.ConsultationPhone,
		ScheduledDate:   time.Now().Add(-24 * time.Hour),
		DurationMinutes: 30,
		Status:          status,
		PriceCents:      50000,
	}
	if err := db.Create(&cons).Error; err != nil {
		t.Fatal(err)
	}
	return seedOut{ClientID: clientID, LawyerID: lawyerID, ConsID: cons.ID}
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
	app.Post("/api/consultation-reviews", h.Create)
	app.Get("/api/consultation-reviews/lawyer/:id", h.ListByLawyer)
	app.Put("/api/consultation-reviews/:id", h.Moderate)
	return app
}

func postReview(t *testing.T, app *fiber.App, consID uuid.UUID, rating int) int {
	t.Helper()
	body := fmt.Sprintf(`{"consultation_id":%q,"rating":%d,"review_text":"Very helpful"}`, consID.String(), rating)
	req := httptest.NewRequest("POST", "/api/consultation-reviews", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	return resp.StatusCode
}

/* ================== TESTS ================== */

func Test_Create_RequiresCompletedConsultation(t *testing.T) {
	db := openTestDB(t)
	seed := seedConsultation(t, db, models.ConsultationConfirmed)

	h := NewHandler(db, notify.NewLog())
	app := newTestApp(h, seed.ClientID, string(models.RoleClient))

	if code := postReview(t, app, seed.ConsID, 5); code != 400 {
		t.Fatalf("review before completion must be 400, got %d", code)
	}
}

func Test_Create_OnePerConsultation(t *testing.T) {
	db := openTestDB(t)
	seed := seedConsultation(t, db, models.ConsultationCompleted)

	h := NewHandler(db, notify.NewLog())
	app := newTestApp(h, seed.ClientID, string(models.RoleClient))

	if code := postReview(t, app, seed.ConsID, 5); code != 201 {
		t.Fatalf("first review got %d", code)
	}
	if code := postReview(t, app, seed.ConsID, 1); code != 409 {
		t.Fatalf("second review must be 409, got %d", code)
	}
}

func Test_Create_OnlyTheClientMayReview(t *testing.T) {
	db := openTestDB(t)
	seed := seedConsultation(t, db, models.ConsultationCompleted)

	h := NewHandler(db, notify.NewLog())
	app := newTestApp(h, seed.LawyerID, string(models.RoleLawyer))

	if code := postReview(t, app, seed.ConsID, 5); code != 403 {
		t.Fatalf("lawyer reviewing own consultation must be 403, got %d", code)
	}
}

func Test_Moderate_ApproveIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	seed := seedConsultation(t, db, models.ConsultationCompleted)

	rv := models.ConsultationReview{
		ID:             uuid.New(),
		ConsultationID: seed.ConsID,
		ClientID:       seed.ClientID,
		LawyerID:       seed.LawyerID,
		Rating:         4,
	}
	if err := db.Create(&rv).Error; err != nil {
		t.Fatal(err)
	}

	h := NewHandler(db, notify.NewLog())
	app := newTestApp(h, seed.LawyerID, string(models.RoleLawyer))

	approve := func() (int, bool) {
		req := httptest.NewRequest("PUT", "/api/consultation-reviews/"+rv.ID.String(),
			strings.NewReader(`{"action":"approve"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)
		var out struct {
			AlreadyApproved bool `json:"already_approved"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return resp.StatusCode, out.AlreadyApproved
	}

	if code, already := approve(); code != 200 || already {
		t.Fatalf("first approve: code=%d already=%v", code, already)
	}
	if code, already := approve(); code != 200 || !already {
		t.Fatalf("second approve: code=%d already=%v", code, already)
	}

	var got models.ConsultationReview
	_ = db.First(&got, "id = ?", rv.ID).Error
	if !got.IsApproved {
		t.Fatal("review must be approved")
	}
}

func Test_ListByLawyer_ApprovedOnlyWithAverage(t *testing.T) {
	db := openTestDB(t)
	seedA := seedConsultation(t, db, models.ConsultationCompleted)

	// Second completed consultation for the same lawyer, different client.
	clientB := uuid.New()
	if err := db.Create(&models.Profile{
		ID: clientB, Email: fmt.Sprintf("cb+%s@test.local", uuid.NewString()),
		PasswordHash: "x", FullName: "CB", Role: models.RoleClient,
	}).Error; err != nil {
		t.Fatal(err)
	}
	consB := models.Consultation{
		ID: uuid.New(), ClientID: clientB, LawyerID: seedA.LawyerID,
		Title: "Second session", Type: models.ConsultationPhone,
		ScheduledDate: time.Now().Add(-48 * time.Hour), DurationMinutes: 30,
		Status: models.ConsultationCompleted, PriceCents: 50000,
	}
	if err := db.Create(&consB).Error; err != nil {
		t.Fatal(err)
	}

	for _, rv := range []models.ConsultationReview{
		{ID: uuid.New(), ConsultationID: seedA.ConsID, ClientID: seedA.ClientID, LawyerID: seedA.LawyerID, Rating: 5, IsApproved: true},
		{ID: uuid.New(), ConsultationID: consB.ID, ClientID: clientB, LawyerID: seedA.LawyerID, Rating: 3, IsApproved: false},
	} {
		if err := db.Create(&rv).Error; err != nil {
			t.Fatal(err)
		}
	}

	h := NewHandler(db, notify.NewLog())
	app := newTestApp(h, seedA.ClientID, string(models.RoleClient))

	req := httptest.NewRequest("GET", "/api/consultation-reviews/lawyer/"+seedA.LawyerID.String(), nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != 200 {
		t.Fatalf("got %d", resp.StatusCode)
	}

	var out struct {
		Items []struct {
			Rating int `json:"rating"`
		} `json:"items"`
		AverageRating float64 `json:"average_rating"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if len(out.Items) != 1 {
		t.Fatalf("only the approved review must show, got %d", len(out.Items))
	}
	if out.AverageRating != 5 {
		t.Fatalf("average over approved reviews must be 5, got %v", out.AverageRating)
	}
}
