// server/http/catalog.go
package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ViniZap4/noteful-server/auth"
	"github.com/ViniZap4/noteful-server/domain"
)

type nameRequest struct {
	Name string `json:"name"`
}

func (s *Server) HandleListFolders(c *fiber.Ctx) error {
	folders, err := s.store.ListFolders(c.UserContext(), auth.CurrentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(folders)
}

func (s *Server) HandleCreateFolder(c *fiber.Ctx) error {
	name, err := parseName(c)
	if err != nil {
		return err
	}

	folder := &domain.Folder{Name: name, UserID: auth.CurrentUser(c).ID}
	if err := s.store.CreateFolder(c.UserContext(), folder); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return fiber.NewError(fiber.StatusConflict, "The folder name already exists")
		}
		return err
	}

	c.Location("/folders/" + folder.ID)
	return c.Status(fiber.StatusCreated).JSON(folder)
}

func (s *Server) HandleListTags(c *fiber.Ctx) error {
	tags, err := s.store.ListTags(c.UserContext(), auth.CurrentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(tags)
}

func (s *Server) HandleCreateTag(c *fiber.Ctx) error {
	name, err := parseName(c)
	if err != nil {
		return err
	}

	tag := &domain.Tag{Name: name, UserID: auth.CurrentUser(c).ID}
	if err := s.store.CreateTag(c.UserContext(), tag); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return fiber.NewError(fiber.StatusConflict, "The tag name already exists")
		}
		return err
	}

	c.Location("/tags/" + tag.ID)
	return c.Status(fiber.StatusCreated).JSON(tag)
}

func parseName(c *fiber.Ctx) (string, error) {
	var req nameRequest
	if err := c.BodyParser(&req); err != nil {
		return "", domain.Invalid("Invalid request body")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", domain.Invalid("Missing `name` in request body")
	}
	return name, nil
}
