package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- humanizeParam (pure function, no HTTP) ---

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param    string
		expected string
	}{
		{"id", "ID"},
		{"slug", "slug"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.expected, humanizeParam(tt.param))
		})
	}
}

// --- parsePagination ---

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		limit  float64
		offset float64
	}{
		{"defaults", "", 25, 0},
		{"custom", "?limit=10&offset=30", 10, 30},
		{"limit capped", "?limit=1000", maxPaginationLimit, 0},
		{"negative values", "?limit=-5&offset=-1", 25, 0},
	}

	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		p := parsePagination(c, 25)
		return c.JSON(fiber.Map{"limit": p.Limit, "offset": p.Offset})
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items"+tt.query, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			var body map[string]float64
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.limit, body["limit"])
			assert.Equal(t, tt.offset, body["offset"])
		})
	}
}

// --- parseID ---

func TestParseID(t *testing.T) {
	s := &Server{}
	app := fiber.New()
	app.Get("/items/:id", func(c *fiber.Ctx) error {
		id, err := s.parseID(c, "id")
		if err != nil {
			return nil
		}
		return c.JSON(fiber.Map{"id": id})
	})

	tests := []struct {
		path   string
		status int
	}{
		{"/items/42", http.StatusOK},
		{"/items/abc", http.StatusBadRequest},
		{"/items/0", http.StatusBadRequest},
		{"/items/-3", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.status == http.StatusBadRequest {
				var body models.ErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, "Invalid ID", body.Error)
				assert.Equal(t, models.CodeValidation, body.Code)
			}
		})
	}
}

func TestParseID_ContextSpecificErrorMessage(t *testing.T) {
	s := &Server{}
	app := fiber.New()
	app.Get("/items/:messageId", func(c *fiber.Ctx) error {
		_, _ = s.parseID(c, "messageId")
		return nil
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items/abc", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Invalid message ID", body["error"])
}

func TestPageID(t *testing.T) {
	app := fiber.New()
	app.Get("/pages/:id", func(c *fiber.Ctx) error {
		id, err := pageID(c, "id")
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"id": id})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/pages/7", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/pages/seven", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIsAPIPath(t *testing.T) {
	assert.True(t, isAPIPath("/api"))
	assert.True(t, isAPIPath("/api/messages/1"))
	assert.False(t, isAPIPath("/apiary"))
	assert.False(t, isAPIPath("/users/1"))
}

func TestRespondError(t *testing.T) {
	app := fiber.New()
	app.Get("/missing", func(c *fiber.Ctx) error {
		return respondError(c, models.NewNotFoundError("Message", 9))
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return respondError(c, errors.New("dial tcp: refused"))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, models.CodeInternal, body.Code)
	assert.NotContains(t, body.Error+body.Details, "refused")
}
