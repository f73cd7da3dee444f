package server

import (
	"fmt"

	"warbler/internal/models"
	"warbler/internal/service"

	"github.com/gofiber/fiber/v2"
)

const profileMessagesLimit = 100

type profileForm struct {
	Username       string `form:"username"`
	Email          string `form:"email"`
	ImageURL       string `form:"image_url"`
	HeaderImageURL string `form:"header_image_url"`
	Bio            string `form:"bio"`
	Location       string `form:"location"`
	Password       string `form:"password"`
}

// Home handles GET /. Logged-in users see their timeline, everyone else the landing page.
func (s *Server) Home(c *fiber.Ctx) error {
	user := currentUser(c)
	if user == nil {
		return s.render(c, fiber.StatusOK, "landing", fiber.Map{"BodyClass": "homepage"})
	}

	profile, err := s.userService.GetProfile(c.UserContext(), user.ID, user.ID)
	if err != nil {
		return err
	}
	msgs, err := s.userService.Timeline(c.UserContext(), user.ID, service.TimelineLimit)
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "home", fiber.Map{
		"Profile":  profile,
		"Messages": msgs,
	})
}

// ListUsers handles GET /users?q=
func (s *Server) ListUsers(c *fiber.Ctx) error {
	q := c.Query("q")
	p := parsePagination(c, maxPaginationLimit)
	users, err := s.userService.Search(c.UserContext(), q, p.Limit, p.Offset)
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "users/index", fiber.Map{
		"Title": "Users",
		"Query": q,
		"Users": users,
		"Empty": "Sorry, no users found",
	})
}

// profilePage loads the profile shown at the top of every /users/:id page.
func (s *Server) profilePage(c *fiber.Ctx) (*models.UserProfile, error) {
	id, err := pageID(c, "id")
	if err != nil {
		return nil, err
	}
	return s.userService.GetProfile(c.UserContext(), id, viewerID(c))
}

// ShowUser handles GET /users/:id
func (s *Server) ShowUser(c *fiber.Ctx) error {
	profile, err := s.profilePage(c)
	if err != nil {
		return err
	}
	msgs, err := s.messageService.ListByUser(c.UserContext(), profile.User.ID, viewerID(c), profileMessagesLimit, 0)
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "users/show", fiber.Map{
		"Title":    "@" + profile.User.Username,
		"Profile":  profile,
		"Messages": msgs,
	})
}

// ShowFollowing handles GET /users/:id/following
func (s *Server) ShowFollowing(c *fiber.Ctx) error {
	profile, err := s.profilePage(c)
	if err != nil {
		return err
	}
	users, err := s.socialService.Following(c.UserContext(), profile.User.ID, maxPaginationLimit, 0)
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "users/following", fiber.Map{
		"Title":   "Following",
		"Profile": profile,
		"Users":   users,
		"Empty":   "Not following anyone yet.",
	})
}

// ShowFollowers handles GET /users/:id/followers
func (s *Server) ShowFollowers(c *fiber.Ctx) error {
	profile, err := s.profilePage(c)
	if err != nil {
		return err
	}
	users, err := s.socialService.Followers(c.UserContext(), profile.User.ID, maxPaginationLimit, 0)
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "users/followers", fiber.Map{
		"Title":   "Followers",
		"Profile": profile,
		"Users":   users,
		"Empty":   "No followers yet.",
	})
}

// ShowLikes handles GET /users/:id/likes
func (s *Server) ShowLikes(c *fiber.Ctx) error {
	profile, err := s.profilePage(c)
	if err != nil {
		return err
	}
	msgs, err := s.socialService.LikedMessages(c.UserContext(), profile.User.ID, viewerID(c), maxPaginationLimit, 0)
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "users/likes", fiber.Map{
		"Title":    "Likes",
		"Profile":  profile,
		"Messages": msgs,
	})
}

// Follow handles POST /users/follow/:id
func (s *Server) Follow(c *fiber.Ctx) error {
	targetID, err := pageID(c, "id")
	if err != nil {
		return err
	}
	user := currentUser(c)
	if err := s.socialService.Follow(c.UserContext(), user.ID, targetID); err != nil {
		return err
	}
	return c.Redirect(fmt.Sprintf("/users/%d/following", user.ID))
}

// StopFollowing handles POST /users/stop-following/:id
func (s *Server) StopFollowing(c *fiber.Ctx) error {
	targetID, err := pageID(c, "id")
	if err != nil {
		return err
	}
	user := currentUser(c)
	if err := s.socialService.Unfollow(c.UserContext(), user.ID, targetID); err != nil {
		return err
	}
	return c.Redirect(fmt.Sprintf("/users/%d/following", user.ID))
}

// EditProfileForm handles GET /users/profile
func (s *Server) EditProfileForm(c *fiber.Ctx) error {
	user := currentUser(c)
	return s.render(c, fiber.StatusOK, "users/edit", fiber.Map{
		"Title": "Edit profile",
		"Form": profileForm{
			Username:       user.Username,
			Email:          user.Email,
			ImageURL:       user.ImageURL,
			HeaderImageURL: user.HeaderImageURL,
			Bio:            user.Bio,
			Location:       user.Location,
		},
	})
}

// EditProfile handles POST /users/profile. The current password confirms the change.
func (s *Server) EditProfile(c *fiber.Ctx) error {
	var form profileForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.ErrBadRequest
	}

	user := currentUser(c)
	updated, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:         user.ID,
		Username:       form.Username,
		Email:          form.Email,
		ImageURL:       form.ImageURL,
		HeaderImageURL: form.HeaderImageURL,
		Bio:            form.Bio,
		Location:       form.Location,
		Password:       form.Password,
	})
	if err != nil {
		form.Password = ""
		return s.formError(c, err, "users/edit", fiber.Map{"Title": "Edit profile", "Form": form})
	}

	flash(c, "Profile updated.", "success")
	return c.Redirect(fmt.Sprintf("/users/%d", updated.ID))
}

// DeleteAccount handles POST /users/delete
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	user := currentUser(c)
	if err := s.userService.DeleteAccount(c.UserContext(), user.ID); err != nil {
		return err
	}
	if err := logOut(c); err != nil {
		return err
	}
	flash(c, "Your account has been deleted.", "info")
	return c.Redirect("/signup")
}

func viewerID(c *fiber.Ctx) uint {
	if user := currentUser(c); user != nil {
		return user.ID
	}
	return 0
}
