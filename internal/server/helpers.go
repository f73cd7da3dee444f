package server

import (
	"errors"

	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	csrfFormField  = "_csrf"
	csrfContextKey = "csrf"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	maxPaginationLimit = 100
)

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// pageID is parseID for HTML routes: a malformed id is simply a page that
// does not exist.
func pageID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, fiber.ErrNotFound
	}
	return uint(id), nil
}

// humanizeParam turns a route param name into the label used in error messages.
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	return param
}

// respondError writes err as a JSON error envelope with the matching status.
// Errors that are not AppErrors are reported as internal.
func respondError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		err = models.NewInternalError(err)
	}
	return models.RespondWithError(c, models.StatusFor(err), err)
}

// render writes an HTML page inside the default layout. It fills in the
// values the layout needs: current user, pending flash and CSRF token.
func (s *Server) render(c *fiber.Ctx, status int, name string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	defaults := fiber.Map{
		"Title":     "",
		"BodyClass": "",
		"Query":     "",
	}
	for k, v := range defaults {
		if _, ok := data[k]; !ok {
			data[k] = v
		}
	}
	data["CurrentUser"] = currentUser(c)
	data["CSRFToken"] = c.Locals(csrfContextKey)
	data["Flash"], data["FlashCategory"] = popFlash(c)

	return c.Status(status).Render(name, data)
}

// renderError shows the error page. Internal details never reach the page.
func (s *Server) renderError(c *fiber.Ctx, status int, err error) error {
	message := "Something went wrong."
	var appErr *models.AppError
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &appErr) && appErr.Code != models.CodeInternal:
		message = appErr.Message
	case errors.As(err, &fiberErr):
		message = fiberErr.Message
	}

	return s.render(c, status, "error", fiber.Map{
		"Title":   message,
		"Status":  status,
		"Message": message,
	})
}

// formError re-renders a form page after a validation, conflict or
// credential failure and reports any other error to the error page.
func (s *Server) formError(c *fiber.Ctx, err error, page string, data fiber.Map) error {
	switch {
	case models.IsCode(err, models.CodeValidation),
		models.IsCode(err, models.CodeConflict),
		models.IsCode(err, models.CodeUnauthorized):
		var appErr *models.AppError
		errors.As(err, &appErr)
		flash(c, appErr.Message, "danger")
		return s.render(c, models.StatusFor(err), page, data)
	default:
		return err
	}
}
