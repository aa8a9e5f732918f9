package reports

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

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
		&models.Profile{}, &models.AnonymousReport{}, &models.WorkflowHistory{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		sql := `
TRUNCATE TABLE
	workflow_histories,
	anonymous_reports,
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

func seedReport(t *testing.T, db *gorm.DB, status models.ReportStatus) uuid.UUID {
	t.Helper()
	r := models.AnonymousReport{
		ID:          uuid.New(),
		Category:    "police_misconduct",
		Title:       "Unlawful detention at checkpoint",
		Description: strings.Repeat("Officers detained travellers without charge. ", 2),
		Status:      status,
		Priority:    models.PriorityMedium,
	}
	if err := db.Create(&r).Error; err != nil {
		t.Fatal(err)
	}
	return r.ID
}

func injectAuth(userID uuid.UUID, role string) fiber.Handler {
	id := userID.String()
	return func(c *fiber.Ctx) error {
		c.Locals("userID", id)
		c.Locals("role", role)
		return c.Next()
	}
}

func newStaffApp(h *Handler, userID uuid.UUID, role string) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: auth.ErrorHandler})
	app.Use(injectAuth(userID, role))
	app.Get("/api/anonymous-reports", h.List)
	app.Put("/api/anonymous-reports/:id", h.Triage)
	return app
}

func newPublicApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: auth.ErrorHandler})
	app.Post("/api/anonymous-reports", h.Create)
	return app
}

/* ================== TESTS ================== */

func Test_Create_Anonymous_NoAuthNeeded(t *testing.T) {
	db := openTestDB(t)

	h := NewHandler(db, notify.NewLog())
	app := newPublicApp(h)

	body := `{
		"category":"corruption",
		"title":"Bribe demanded at land office",
		"description":"A clerk demanded a facilitation fee before releasing my title deed documents.",
		"incident_date":"2026-08-12"
	}`
	req := httptest.NewRequest("POST", "/api/anonymous-reports", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	if resp.StatusCode != 201 {
		t.Fatalf("anonymous create got %d", resp.StatusCode)
	}

	var r models.AnonymousReport
	if err := db.First(&r, "category = ?", "corruption").Error; err != nil {
		t.Fatal(err)
	}
	if r.Status != models.ReportPending || r.Priority != models.PriorityMedium {
		t.Fatalf("defaults wrong: %s/%s", r.Status, r.Priority)
	}
	if r.AssignedTo != nil {
		t.Fatal("fresh report must be unassigned")
	}
	if r.IncidentDate == nil || r.IncidentDate.Format("2006-01-02") != "2026-08-12" {
		t.Fatalf("incident date not stored: %v", r.IncidentDate)
	}
}

func Test_Triage_ReviewAssignsAndTransitions(t *testing.T) {
	db := openTestDB(t)
	lawyerID := seedProfile(t, db, models.RoleLawyer)
	repID := seedReport(t, db, models.ReportPending)

	h := NewHandler(db, notify.NewLog())
	app := newStaffApp(h, lawyerID, string(models.RoleLawyer))

	body := `{"action":"review","assigned_to":"` + lawyerID.String() + `","priority":"high"}`
	req := httptest.NewRequest("PUT", "/api/anonymous-reports/"+repID.String(), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	if resp.StatusCode != 200 {
		t.Fatalf("triage got %d", resp.StatusCode)
	}

	var r models.AnonymousReport
	_ = db.First(&r, "id = ?", repID).Error
	if r.Status != models.ReportUnderReview {
		t.Fatalf("want under_review, got %s", r.Status)
	}
	if r.AssignedTo == nil || *r.AssignedTo != lawyerID {
		t.Fatalf("assignee not stored: %v", r.AssignedTo)
	}
	if r.Priority != models.PriorityHigh {
		t.Fatalf("priority not stored: %s", r.Priority)
	}
}

func Test_Triage_SecondReviewer_Conflict(t *testing.T) {
	db := openTestDB(t)
	lawyerA := seedProfile(t, db, models.RoleLawyer)
	lawyerB := seedProfile(t, db, models.RoleParalegal)
	repID := seedReport(t, db, models.ReportPending)

	h := NewHandler(db, notify.NewLog())

	appA := newStaffApp(h, lawyerA, string(models.RoleLawyer))
	reqA := httptest.NewRequest("PUT", "/api/anonymous-reports/"+repID.String(),
		strings.NewReader(`{"action":"review"}`))
	reqA.Header.Set("Content-Type", "application/json")
	respA, _ := appA.Test(reqA)
	if respA.StatusCode != 200 {
		t.Fatalf("first review got %d", respA.StatusCode)
	}

	// Second staffer tries the same pending -> under_review move.
	appB := newStaffApp(h, lawyerB, string(models.RoleParalegal))
	reqB := httptest.NewRequest("PUT", "/api/anonymous-reports/"+repID.String(),
		strings.NewReader(`{"action":"review"}`))
	reqB.Header.Set("Content-Type", "application/json")
	respB, _ := appB.Test(reqB)
	if respB.StatusCode != 409 {
		t.Fatalf("second review must be 409, got %d", respB.StatusCode)
	}
}

func Test_Triage_AssigneeMustBeStaff(t *testing.T) {
	db := openTestDB(t)
	lawyerID := seedProfile(t, db, models.RoleLawyer)
	clientID := seedProfile(t, db, models.RoleClient)
	repID := seedReport(t, db, models.ReportPending)

	h := NewHandler(db, notify.NewLog())
	app := newStaffApp(h, lawyerID, string(models.RoleLawyer))

	body := `{"action":"review","assigned_to":"` + clientID.String() + `"}`
	req := httptest.NewRequest("PUT", "/api/anonymous-reports/"+repID.String(), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	if resp.StatusCode != 400 {
		t.Fatalf("client assignee must be 400, got %d", resp.StatusCode)
	}
}

func Test_Triage_ClosedReport_RejectsEdits(t *testing.T) {
	db := openTestDB(t)
	lawyerID := seedProfile(t, db, models.RoleLawyer)
	repID := seedReport(t, db, models.ReportClosed)

	h := NewHandler(db, notify.NewLog())
	app := newStaffApp(h, lawyerID, string(models.RoleLawyer))

	// No transition, just a priority edit: still refused once closed.
	req := httptest.NewRequest("PUT", "/api/anonymous-reports/"+repID.String(),
		strings.NewReader(`{"priority":"urgent"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	if resp.StatusCode != 409 {
		t.Fatalf("edit on closed report must be 409, got %d", resp.StatusCode)
	}

	var r models.AnonymousReport
	_ = db.First(&r, "id = ?", repID).Error
	if r.Priority != models.PriorityMedium {
		t.Fatalf("closed report must not change, got %s", r.Priority)
	}
}

func Test_List_PreviewIsRedacted(t *testing.T) {
	db := openTestDB(t)
	lawyerID := seedProfile(t, db, models.RoleLawyer)

	r := models.AnonymousReport{
		ID:          uuid.New(),
		Category:    "harassment",
		Title:       "Threats from an employer",
		Description: "My boss keeps threatening me. Witness can be reached at wit@example.org if needed.",
		Status:      models.ReportPending,
		Priority:    models.PriorityMedium,
	}
	if err := db.Create(&r).Error; err != nil {
		t.Fatal(err)
	}

	h := NewHandler(db, notify.NewLog())
	app := newStaffApp(h, lawyerID, string(models.RoleLawyer))

	req := httptest.NewRequest("GET", "/api/anonymous-reports?status=pending", nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != 200 {
		t.Fatalf("got %d", resp.StatusCode)
	}

	var out struct {
		Items []struct {
			Preview string `json:"preview"`
		} `json:"items"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if len(out.Items) != 1 {
		t.Fatalf("want 1 item, got %d", len(out.Items))
	}
	if strings.Contains(out.Items[0].Preview, "wit@example.org") {
		t.Fatalf("preview leaked an email: %q", out.Items[0].Preview)
	}
}
