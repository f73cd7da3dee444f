package server

import (
	"time"

	"warbler/internal/cache"
	"warbler/internal/config"
	"warbler/internal/middleware"
	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/redis/go-redis/v9"
)

// CurrUserKey is the session key holding the logged-in user's id.
const CurrUserKey = "curr_user"

const (
	flashKey         = "_flash"
	flashCategoryKey = "_flash_category"

	localSession      = "session"
	localSessionDirty = "sessionDirty"
	localCurrentUser  = "currentUser"
)

func newSessionStore(cfg *config.Config, rdb *redis.Client) *session.Store {
	sc := session.Config{
		Expiration:     time.Duration(cfg.SessionTTLHours) * time.Hour,
		KeyLookup:      "cookie:" + cfg.SessionCookieName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   cfg.IsProduction(),
	}
	// Without Redis the store falls back to Fiber's in-memory storage.
	if rdb != nil {
		sc.Storage = cache.NewSessionStorage(rdb)
	}
	return session.New(sc)
}

// SessionMiddleware loads the session once per request, resolves the
// logged-in user and persists the session afterwards if it changed.
// Handler errors are rendered here, while the session is still usable.
func (s *Server) SessionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if isAPIPath(c.Path()) {
			return c.Next()
		}

		sess, err := s.sessions.Get(c)
		if err != nil {
			return err
		}
		c.Locals(localSession, sess)

		if id, ok := sess.Get(CurrUserKey).(uint); ok && id != 0 {
			user, err := s.userService.GetUserByID(c.UserContext(), id)
			switch {
			case err == nil:
				c.Locals(localCurrentUser, user)
				middleware.SetUser(c, user.ID)
			case models.IsCode(err, models.CodeNotFound):
				// The account is gone; forget it.
				sess.Delete(CurrUserKey)
				markSessionDirty(c)
			default:
				return err
			}
		}

		if err := c.Next(); err != nil {
			if herr := s.errorHandler(c, err); herr != nil {
				return herr
			}
		}

		c.Locals(localSession, nil)
		if dirty, _ := c.Locals(localSessionDirty).(bool); dirty {
			// Save releases sess; it must not be touched afterwards.
			return sess.Save()
		}
		return nil
	}
}

func sessionFrom(c *fiber.Ctx) *session.Session {
	sess, _ := c.Locals(localSession).(*session.Session)
	return sess
}

func markSessionDirty(c *fiber.Ctx) {
	c.Locals(localSessionDirty, true)
}

// currentUser returns the logged-in user, or nil for anonymous requests.
func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(localCurrentUser).(*models.User)
	return user
}

// logIn binds the session to user under a fresh session id.
func logIn(c *fiber.Ctx, user *models.User) error {
	sess := sessionFrom(c)
	if sess == nil {
		return fiber.ErrInternalServerError
	}
	if err := sess.Regenerate(); err != nil {
		return err
	}
	sess.Set(CurrUserKey, user.ID)
	markSessionDirty(c)
	c.Locals(localCurrentUser, user)
	middleware.SetUser(c, user.ID)
	return nil
}

// logOut removes the user from the session and rotates its id.
func logOut(c *fiber.Ctx) error {
	sess := sessionFrom(c)
	if sess == nil {
		return nil
	}
	sess.Delete(CurrUserKey)
	if err := sess.Regenerate(); err != nil {
		return err
	}
	markSessionDirty(c)
	c.Locals(localCurrentUser, nil)
	return nil
}

// flash queues a one-shot message for the next rendered page.
func flash(c *fiber.Ctx, message, category string) {
	sess := sessionFrom(c)
	if sess == nil {
		return
	}
	sess.Set(flashKey, message)
	sess.Set(flashCategoryKey, category)
	markSessionDirty(c)
}

func popFlash(c *fiber.Ctx) (message, category string) {
	sess := sessionFrom(c)
	if sess == nil {
		return "", ""
	}
	message, _ = sess.Get(flashKey).(string)
	if message == "" {
		return "", ""
	}
	category, _ = sess.Get(flashCategoryKey).(string)
	sess.Delete(flashKey)
	sess.Delete(flashCategoryKey)
	markSessionDirty(c)
	return message, category
}

// requireUser lets logged-in users through and sends everyone else to /login.
func (s *Server) requireUser(c *fiber.Ctx) error {
	if currentUser(c) == nil {
		flash(c, "Access unauthorized.", "danger")
		return c.Redirect("/login")
	}
	return c.Next()
}
