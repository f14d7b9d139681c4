// server/http/handlers.go
package http

import (
	"errors"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/ViniZap4/noteful-server/auth"
	"github.com/ViniZap4/noteful-server/domain"
	"github.com/ViniZap4/noteful-server/markdown"
	"github.com/ViniZap4/noteful-server/ws"
)

const wsUserKey = "ws_user_id"

type credentialsRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type tokenResponse struct {
	AuthToken string `json:"authToken"`
}

type createNoteRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	FolderID string   `json:"folderId"`
	Tags     []string `json:"tags"`
}

// Pointer fields tell "absent" apart from "set to empty".
type updateNoteRequest struct {
	Title    *string   `json:"title"`
	Content  *string   `json:"content"`
	FolderID *string   `json:"folderId"`
	Tags     *[]string `json:"tags"`
}

func (s *Server) HandleRegister(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.Invalid("Invalid request body")
	}

	user, err := s.authn.Register(c.UserContext(), req.Username, req.Password)
	if errors.Is(err, domain.ErrConflict) {
		return fiber.NewError(fiber.StatusConflict, "The username already exists")
	}
	if err != nil {
		return err
	}

	c.Location("/users/" + user.ID)
	return c.Status(fiber.StatusCreated).JSON(user)
}

func (s *Server) HandleLogin(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.Invalid("Missing credentials")
	}

	token, err := s.authn.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			s.log.Info().Str("username", req.Username).Msg("login rejected")
		}
		return err
	}
	return c.JSON(tokenResponse{AuthToken: token})
}

func (s *Server) HandleRefresh(c *fiber.Ctx) error {
	token, err := s.authn.Refresh(auth.CurrentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(tokenResponse{AuthToken: token})
}

func (s *Server) HandleListNotes(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	notes, err := s.notes.List(c.UserContext(), user.ID, domain.NoteFilter{
		SearchTerm: c.Query("searchTerm"),
		FolderID:   c.Query("folderId"),
		TagID:      c.Query("tagId"),
	})
	if err != nil {
		return err
	}
	return c.JSON(notes)
}

func (s *Server) HandleGetNote(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	note, err := s.notes.Get(c.UserContext(), user.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(note)
}

func (s *Server) HandleCreateNote(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	var req createNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.Invalid("Invalid request body")
	}

	note, err := s.notes.Create(c.UserContext(), user.ID, domain.NewNote{
		Title:    req.Title,
		Content:  req.Content,
		FolderID: req.FolderID,
		TagIDs:   req.Tags,
	})
	if err != nil {
		return err
	}

	return s.created(c, user.ID, note)
}

func (s *Server) HandleUpdateNote(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	var req updateNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.Invalid("Invalid request body")
	}

	note, err := s.notes.Update(c.UserContext(), user.ID, c.Params("id"), domain.NotePatch{
		Title:    req.Title,
		Content:  req.Content,
		FolderID: req.FolderID,
		TagIDs:   req.Tags,
	})
	if err != nil {
		return err
	}

	s.hub.Broadcast(user.ID, ws.NoteUpdated, note)
	return c.JSON(note)
}

func (s *Server) HandleDeleteNote(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)
	// c.Params aliases the request buffer; only the id returned by the
	// service outlives the handler.
	id, err := s.notes.Delete(c.UserContext(), user.ID, c.Params("id"))
	if err != nil {
		return err
	}

	s.hub.Broadcast(user.ID, ws.NoteDeleted, &domain.Note{ID: id, UserID: user.ID})
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) HandleExportNote(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	note, err := s.notes.Get(c.UserContext(), user.ID, c.Params("id"))
	if err != nil {
		return err
	}

	data, err := markdown.Render(note)
	if err != nil {
		return err
	}

	c.Attachment(markdown.Filename(note))
	c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
	return c.Send(data)
}

func (s *Server) HandleImportNote(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	in, err := markdown.Parse(c.Body())
	if err != nil {
		return domain.Invalid("The markdown document is not valid: " + err.Error())
	}

	note, err := s.notes.Create(c.UserContext(), user.ID, in)
	if err != nil {
		return err
	}

	return s.created(c, user.ID, note)
}

// created answers 201 with a Location pointing at the new note and
// tells the owner's websocket clients about it.
func (s *Server) created(c *fiber.Ctx, userID string, note *domain.Note) error {
	s.hub.Broadcast(userID, ws.NoteCreated, note)

	c.Location("/notes/" + note.ID)
	return c.Status(fiber.StatusCreated).JSON(note)
}

func (s *Server) upgradeWebSocket(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	// websocket.Conn only exposes string keyed locals
	c.Locals(wsUserKey, auth.CurrentUser(c).ID)
	return c.Next()
}

func (s *Server) HandleWebSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals(wsUserKey).(string)
	if userID == "" {
		conn.Close()
		return
	}
	s.hub.HandleConnection(conn, userID)
}
