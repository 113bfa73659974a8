package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/tazhate/pillbot/config"
	"github.com/tazhate/pillbot/internal/domain"
	"github.com/tazhate/pillbot/internal/service"
)

const maxUpcoming = 500

type Server struct {
	app      *fiber.App
	cfg      *config.Config
	svc      *service.ReminderService
	validate *validator.Validate
}

// New builds the HTTP server. webhook, when not nil, is mounted at webhookPath
// outside basic auth. The REST API is only registered when credentials are set.
func New(cfg *config.Config, svc *service.ReminderService, webhookPath string, webhook http.HandlerFunc) *Server {
	s := &Server{
		cfg:      cfg,
		svc:      svc,
		validate: validator.New(),
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s.app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if c.Path() != "/health" {
			log.Printf("[api] %s %s status=%d dur=%s", c.Method(), c.OriginalURL(), c.Response().StatusCode(), time.Since(start))
		}
		return err
	})

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	if webhook != nil {
		s.app.Post(webhookPath, adaptor.HTTPHandlerFunc(webhook))
	}

	if cfg.Server.Username == "" || cfg.Server.Password == "" {
		log.Println("[api] no credentials configured, REST API disabled")
		return s
	}

	api := s.app.Group("/api", basicauth.New(basicauth.Config{
		Users: map[string]string{cfg.Server.Username: cfg.Server.Password},
		Realm: "pillbot",
	}))

	api.Get("/reminders", s.listReminders)
	api.Post("/reminders", s.createReminder)
	api.Get("/reminders/:id", s.getReminder)
	api.Put("/reminders/:id", s.updateReminder)
	api.Delete("/reminders/:id", s.deleteReminder)
	api.Patch("/reminders/:id/enabled", s.setEnabled)
	api.Get("/reminders/:id/draft", s.getDraft)
	api.Put("/reminders/:id/draft", s.putDraft)
	api.Get("/reminders/:id/upcoming", s.upcoming)
	api.Get("/drafts/new", s.newDraft)

	api.Get("/schedule", s.schedule)
	api.Get("/pending", s.pending)
	api.Post("/reset", s.reset)

	return s
}

// App exposes the fiber app, mostly for app.Test
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Start() error {
	log.Printf("Starting HTTP server on :%s", s.cfg.Server.Port)
	return s.app.Listen(":" + s.cfg.Server.Port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	var ve validator.ValidationErrors
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.As(err, &ve):
		code = fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateID):
		code = fiber.StatusConflict
	case errors.Is(err, domain.ErrEmptyName),
		errors.Is(err, domain.ErrInvalidPattern),
		errors.Is(err, domain.ErrInvalidHalt),
		errors.Is(err, domain.ErrInvalidTime),
		errors.Is(err, domain.ErrInvalidWeekday):
		code = fiber.StatusBadRequest
	}

	if code >= fiber.StatusInternalServerError {
		log.Printf("Error handling %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(code).JSON(Response{Success: false, Error: err.Error()})
}

func ok(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(Response{Success: true, Data: data})
}
