// server/http/server.go
package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"

	"github.com/ViniZap4/noteful-server/auth"
	"github.com/ViniZap4/noteful-server/domain"
	"github.com/ViniZap4/noteful-server/notes"
	"github.com/ViniZap4/noteful-server/store"
	"github.com/ViniZap4/noteful-server/ws"
)

type Server struct {
	store  store.Store
	notes  *notes.Service
	authn  *auth.Authenticator
	issuer *auth.Issuer
	hub    *ws.Hub
	log    zerolog.Logger
}

func NewServer(st store.Store, issuer *auth.Issuer, hub *ws.Hub, log zerolog.Logger) *Server {
	return &Server{
		store:  st,
		notes:  notes.NewService(st, log),
		authn:  auth.NewAuthenticator(st, issuer),
		issuer: issuer,
		hub:    hub,
		log:    log.With().Str("component", "http").Logger(),
	}
}

// App builds the fiber application with every route registered.
func (s *Server) App(corsOrigins string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "noteful",
		ErrorHandler:          s.handleError,
		DisableStartupMessage: true,
	})

	app.Use(requestid.New())
	app.Use(s.requestLogger)
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Authorization",
	}))

	requireAuth := auth.Middleware(s.issuer)

	app.Get("/health", s.HandleHealth)
	app.Post("/users", s.HandleRegister)
	app.Post("/auth", s.HandleLogin)
	app.Post("/auth/refresh", requireAuth, s.HandleRefresh)

	noteRoutes := app.Group("/notes", requireAuth)
	noteRoutes.Get("/", s.HandleListNotes)
	noteRoutes.Post("/", s.HandleCreateNote)
	noteRoutes.Post("/import", s.HandleImportNote)
	noteRoutes.Get("/:id", s.HandleGetNote)
	noteRoutes.Get("/:id/export", s.HandleExportNote)
	noteRoutes.Put("/:id", s.HandleUpdateNote)
	noteRoutes.Delete("/:id", s.HandleDeleteNote)

	folders := app.Group("/folders", requireAuth)
	folders.Get("/", s.HandleListFolders)
	folders.Post("/", s.HandleCreateFolder)

	tags := app.Group("/tags", requireAuth)
	tags.Get("/", s.HandleListTags)
	tags.Post("/", s.HandleCreateTag)

	app.Get("/ws",
		auth.Middleware(s.issuer, auth.FromQuery("token"), auth.FromHeader),
		s.upgradeWebSocket,
		websocket.New(s.HandleWebSocket),
	)

	return app
}

func (s *Server) HandleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.log.Error().Err(err).Msg("health check failed")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleError is the single place where errors become responses.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var validation *domain.ValidationError
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &validation):
		code, message = fiber.StatusBadRequest, validation.Message
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrInvalidCredentials):
		code, message = fiber.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, domain.ErrNotFound):
		code, message = fiber.StatusNotFound, "Not Found"
	case errors.Is(err, domain.ErrConflict):
		code, message = fiber.StatusConflict, "Conflict"
	case errors.As(err, &fiberErr):
		code, message = fiberErr.Code, fiberErr.Message
	default:
		s.log.Error().Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
			Msg("unhandled error")
	}

	return c.Status(code).JSON(fiber.Map{
		"status":  code,
		"message": message,
	})
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()

	if err := c.Next(); err != nil {
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	status := c.Response().StatusCode()
	event := s.log.Info()
	if status >= fiber.StatusInternalServerError {
		event = s.log.Error()
	}
	event.
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", status).
		Dur("latency", time.Since(start)).
		Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
		Msg("request")
	return nil
}
