// @title           Haki Kenya API
// @version         1.0
// @description     Legal-aid marketplace backend: clients submit legal questions and book consultations, lawyers and paralegals triage and answer, anyone can file anonymous reports and download document templates.
// @BasePath        /api
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
// @description     Format: Bearer <token> (a haki_token session cookie works too)
package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"

	"github.com/hakikenya/haki-backend/internal/auth"
	"github.com/hakikenya/haki-backend/internal/config"
	"github.com/hakikenya/haki-backend/internal/consultations"
	"github.com/hakikenya/haki-backend/internal/documents"
	"github.com/hakikenya/haki-backend/internal/logging"
	"github.com/hakikenya/haki-backend/internal/notify"
	"github.com/hakikenya/haki-backend/internal/profiles"
	"github.com/hakikenya/haki-backend/internal/questions"
	"github.com/hakikenya/haki-backend/internal/reports"
	"github.com/hakikenya/haki-backend/internal/reviews"
	"github.com/hakikenya/haki-backend/internal/storage"
	"github.com/hakikenya/haki-backend/pkg/database"
	"github.com/hakikenya/haki-backend/pkg/models"
)

func main() {
	_ = godotenv.Load()
	logging.Setup()

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL environment variable is required")
		os.Exit(1)
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			slog.Error("sentry init failed", "error", err)
			os.Exit(1)
		}
	}

	db := database.Init(cfg.DatabaseURL)
	if err := db.AutoMigrate(
		&models.Profile{}, &models.LegalQuestion{}, &models.Consultation{},
		&models.DocumentTemplate{}, &models.UserDocument{},
		&models.AnonymousReport{}, &models.ConsultationReview{},
		&models.WorkflowHistory{},
	); err != nil {
		log.Fatal("migration failed:", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: auth.ErrorHandler,
	})
	app.Use(requestid.New())
	app.Use(fiberlogger.New())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: cfg.CORSOrigins != "*", // cookie auth needs explicit origins
	}))
	if cfg.SentryDSN != "" {
		app.Use(sentryfiber.New(sentryfiber.Options{Repanic: true}))
	}

	app.Get("/health", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })

	api := app.Group("/api")

	// Collaborators
	sb := storage.NewSupabase(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket)
	nd := notify.NewLog()

	// Auth / session
	authH := auth.NewHandler(db, cfg.JWTExpiry)
	api.Post("/auth/signup", authH.Signup)
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/logout", auth.RequireAuth(), authH.Logout)
	api.Get("/auth/me", auth.RequireAuth(), authH.Me)

	// Profiles
	profH := profiles.NewHandler(db)
	api.Get("/lawyers", profH.ListLawyers) // public directory
	api.Put("/profiles/:id", auth.RequireAuth(), profH.Update)

	// Legal questions
	qH := questions.NewHandler(db, nd)
	api.Post("/legal-questions", auth.RequireAuth(), qH.Create)
	api.Get("/legal-questions/my", auth.RequireAuth(), qH.ListMine)
	api.Get("/legal-questions/pending", auth.RequireAuth(), auth.RequireStaff(), qH.ListPending)
	api.Put("/legal-questions/:id", auth.RequireAuth(), auth.RequireStaff(), qH.Update)

	// Consultations
	consH := consultations.NewHandler(db, nd)
	api.Post("/consultations", auth.RequireAuth(), consH.Create)
	api.Get("/consultations/my", auth.RequireAuth(), consH.ListMine)
	api.Put("/consultations/:id", auth.RequireAuth(), consH.Update)

	// Document templates (public read) + private user documents
	docH := documents.NewHandler(db, sb)
	api.Get("/document-templates", docH.ListTemplates)
	api.Post("/document-templates", auth.RequireAuth(), auth.RequireStaff(), docH.CreateTemplate)
	api.Get("/document-templates/:id/download", docH.DownloadTemplate)
	api.Get("/user-documents/my", auth.RequireAuth(), docH.ListMyDocuments)
	api.Post("/user-documents", auth.RequireAuth(), docH.CreateUserDocument)
	api.Put("/user-documents/:id", auth.RequireAuth(), docH.UpdateUserDocument)
	api.Delete("/user-documents/:id", auth.RequireAuth(), docH.DeleteUserDocument)

	// Anonymous reports
	repH := reports.NewHandler(db, nd)
	api.Post("/anonymous-reports", repH.Create) // public, no auth
	api.Get("/anonymous-reports", auth.RequireAuth(), auth.RequireStaff(), repH.List)
	api.Put("/anonymous-reports/:id", auth.RequireAuth(), auth.RequireStaff(), repH.Triage)

	// Consultation reviews
	revH := reviews.NewHandler(db, nd)
	api.Post("/consultation-reviews", auth.RequireAuth(), revH.Create)
	api.Get("/consultation-reviews/approved", revH.ListApproved)
	api.Get("/consultation-reviews/lawyer/:id", revH.ListByLawyer)
	api.Put("/consultation-reviews/:id", auth.RequireAuth(), auth.RequireStaff(), revH.Moderate)

	slog.Info("server running", "port", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}
