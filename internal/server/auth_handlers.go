package server

import (
	"fmt"

	"warbler/internal/models"
	"warbler/internal/service"

	"github.com/gofiber/fiber/v2"
)

type signupForm struct {
	Username string `form:"username"`
	Email    string `form:"email"`
	Password string `form:"password"`
	ImageURL string `form:"image_url"`
}

type loginForm struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// SignupForm handles GET /signup
func (s *Server) SignupForm(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "users/signup", fiber.Map{
		"Title": "Sign up",
		"Form":  signupForm{},
	})
}

// Signup handles POST /signup. On success the new user is logged in.
func (s *Server) Signup(c *fiber.Ctx) error {
	var form signupForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.ErrBadRequest
	}

	user, err := s.authService.Signup(c.UserContext(), service.SignupInput{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
		ImageURL: form.ImageURL,
	})
	if err != nil {
		form.Password = ""
		return s.formError(c, err, "users/signup", fiber.Map{"Title": "Sign up", "Form": form})
	}

	if err := logIn(c, user); err != nil {
		return err
	}
	return c.Redirect("/")
}

// LoginForm handles GET /login
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "users/login", fiber.Map{
		"Title": "Log in",
		"Form":  loginForm{},
	})
}

// Login handles POST /login. Bad credentials re-render the form.
func (s *Server) Login(c *fiber.Ctx) error {
	var form loginForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.ErrBadRequest
	}

	res, err := s.authService.Authenticate(c.UserContext(), form.Username, form.Password)
	if err != nil {
		return err
	}
	if !res.OK() {
		flash(c, "Invalid credentials.", "danger")
		return s.render(c, fiber.StatusOK, "users/login", fiber.Map{
			"Title": "Log in",
			"Form":  loginForm{Username: form.Username},
		})
	}

	if err := logIn(c, res.User); err != nil {
		return err
	}
	flash(c, fmt.Sprintf("Hello, %s!", res.User.Username), "success")
	return c.Redirect("/")
}

// Logout handles GET /logout
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := logOut(c); err != nil {
		return err
	}
	flash(c, "You have successfully logged out.", "success")
	return c.Redirect("/login")
}

// tooManyAttempts renders the rate limit rejection for the HTML forms.
func (s *Server) tooManyAttempts(c *fiber.Ctx) error {
	return s.renderError(c, fiber.StatusTooManyRequests,
		fiber.NewError(fiber.StatusTooManyRequests, "Too many attempts, please try again later."))
}

// IssueToken handles POST /api/auth/token
// @Summary Issue an API token
// @Description Exchange a username and password for a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,password=string} true "Credentials"
// @Success 200 {object} object{token=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/token [post]
func (s *Server) IssueToken(c *fiber.Ctx) error {
	var req loginForm
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	res, err := s.authService.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	if !res.OK() {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	token, err := s.authService.IssueToken(res.User)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  res.User,
	})
}
