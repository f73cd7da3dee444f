package server

import (
	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/service"

	"github.com/gofiber/fiber/v2"
)

// requireAPIUser rejects bearer tokens whose account no longer exists.
// It runs after middleware.BearerAuth.
func (s *Server) requireAPIUser(c *fiber.Ctx) error {
	if _, err := s.userService.GetUserByID(c.UserContext(), middleware.UserID(c)); err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Account no longer exists"))
		}
		return respondError(c, err)
	}
	return c.Next()
}

// APIGetUser handles GET /api/users/:id
// @Summary Get a user profile
// @Description Returns the user with message, follower, following and like counts
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.UserProfile
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) APIGetUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	profile, err := s.userService.GetProfile(c.UserContext(), id, middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// APIUserMessages handles GET /api/users/:id/messages
// @Summary List a user's messages
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param limit query int false "Number of messages to return" default(20)
// @Param offset query int false "Number of messages to skip" default(0)
// @Success 200 {array} models.Message
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/messages [get]
func (s *Server) APIUserMessages(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.userService.GetUserByID(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	p := parsePagination(c, 20)
	msgs, err := s.messageService.ListByUser(c.UserContext(), id, middleware.UserID(c), p.Limit, p.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(msgs)
}

// APITimeline handles GET /api/timeline
// @Summary Home timeline
// @Description Messages from the caller and the users they follow, newest first
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of messages to return" default(100)
// @Success 200 {array} models.Message
// @Router /timeline [get]
func (s *Server) APITimeline(c *fiber.Ctx) error {
	p := parsePagination(c, service.TimelineLimit)
	msgs, err := s.userService.Timeline(c.UserContext(), middleware.UserID(c), p.Limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(msgs)
}

// APIGetMessage handles GET /api/messages/:id
// @Summary Get a message
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Success 200 {object} models.Message
// @Failure 404 {object} models.ErrorResponse
// @Router /messages/{id} [get]
func (s *Server) APIGetMessage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	msg, err := s.messageService.GetMessage(c.UserContext(), id, middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(msg)
}

// APICreateMessage handles POST /api/messages
// @Summary Post a message
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{text=string} true "Message text, 1 to 140 characters"
// @Success 201 {object} models.Message
// @Failure 400 {object} models.ErrorResponse
// @Router /messages [post]
func (s *Server) APICreateMessage(c *fiber.Ctx) error {
	var req messageForm
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	msg, err := s.messageService.CreateMessage(c.UserContext(), middleware.UserID(c), req.Text)
	if err != nil {
		return respondError(c, err)
	}
	created, err := s.messageService.GetMessage(c.UserContext(), msg.ID, middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// APIDeleteMessage handles DELETE /api/messages/:id
// @Summary Delete a message
// @Description Only the author may delete a message
// @Tags messages
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /messages/{id} [delete]
func (s *Server) APIDeleteMessage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.messageService.DeleteMessage(c.UserContext(), middleware.UserID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// APILike handles POST /api/messages/:id/like
// @Summary Like a message
// @Tags social
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /messages/{id}/like [post]
func (s *Server) APILike(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.socialService.Like(c.UserContext(), middleware.UserID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// APIUnlike handles DELETE /api/messages/:id/like
// @Summary Remove a like
// @Tags social
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /messages/{id}/like [delete]
func (s *Server) APIUnlike(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.socialService.Unlike(c.UserContext(), middleware.UserID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// APIFollow handles POST /api/users/:id/follow
// @Summary Follow a user
// @Tags social
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/follow [post]
func (s *Server) APIFollow(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.socialService.Follow(c.UserContext(), middleware.UserID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// APIUnfollow handles DELETE /api/users/:id/follow
// @Summary Unfollow a user
// @Tags social
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/follow [delete]
func (s *Server) APIUnfollow(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.socialService.Unfollow(c.UserContext(), middleware.UserID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
