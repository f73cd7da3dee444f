package server

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type messageForm struct {
	Text string `form:"text" json:"text"`
}

// NewMessageForm handles GET /messages/new
func (s *Server) NewMessageForm(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "messages/new", fiber.Map{
		"Title": "New message",
		"Form":  messageForm{},
	})
}

// CreateMessage handles POST /messages/new
func (s *Server) CreateMessage(c *fiber.Ctx) error {
	var form messageForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.ErrBadRequest
	}

	user := currentUser(c)
	if _, err := s.messageService.CreateMessage(c.UserContext(), user.ID, form.Text); err != nil {
		return s.formError(c, err, "messages/new", fiber.Map{"Title": "New message", "Form": form})
	}
	return c.Redirect(fmt.Sprintf("/users/%d", user.ID))
}

// ShowMessage handles GET /messages/:id
func (s *Server) ShowMessage(c *fiber.Ctx) error {
	id, err := pageID(c, "id")
	if err != nil {
		return err
	}
	msg, err := s.messageService.GetMessage(c.UserContext(), id, viewerID(c))
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "messages/show", fiber.Map{
		"Title":   "@" + msg.User.Username,
		"Message": msg,
	})
}

// DeleteMessage handles POST /messages/:id/delete. Only the author may delete.
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	id, err := pageID(c, "id")
	if err != nil {
		return err
	}
	user := currentUser(c)
	if err := s.messageService.DeleteMessage(c.UserContext(), user.ID, id); err != nil {
		return err
	}
	flash(c, "Message deleted.", "success")
	return c.Redirect(fmt.Sprintf("/users/%d", user.ID))
}

// LikeMessage handles POST /tweets/:id/like
func (s *Server) LikeMessage(c *fiber.Ctx) error {
	id, err := pageID(c, "id")
	if err != nil {
		return err
	}
	if err := s.socialService.Like(c.UserContext(), currentUser(c).ID, id); err != nil {
		return err
	}
	return c.Redirect(fmt.Sprintf("/messages/%d", id))
}

// UnlikeMessage handles POST /tweets/:id/unlike
func (s *Server) UnlikeMessage(c *fiber.Ctx) error {
	id, err := pageID(c, "id")
	if err != nil {
		return err
	}
	if err := s.socialService.Unlike(c.UserContext(), currentUser(c).ID, id); err != nil {
		return err
	}
	return c.Redirect(fmt.Sprintf("/messages/%d", id))
}

// ToggleLike handles POST /users/add_like/:id and returns to the previous page.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, err := pageID(c, "id")
	if err != nil {
		return err
	}
	if _, err := s.socialService.ToggleLike(c.UserContext(), currentUser(c).ID, id); err != nil {
		return err
	}
	return c.RedirectBack("/")
}
