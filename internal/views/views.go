// Package views holds Warbler's server-rendered HTML templates.
package views

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"warbler/internal/models"

	"github.com/gofiber/template/html/v2"
)

// DefaultLayout wraps every page.
const DefaultLayout = "layouts/base"

var (
	//go:embed templates
	templateFS embed.FS

	//go:embed static
	staticFS embed.FS
)

// NewEngine returns a Fiber view engine over the embedded templates.
func NewEngine() *html.Engine {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(fmt.Sprintf("views: %v", err))
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFuncMap(Funcs())
	return engine
}

// Static serves the stylesheets under /static.
func Static() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("views: %v", err))
	}
	return http.FS(sub)
}

// Funcs returns the helpers available to every template.
func Funcs() map[string]any {
	return map[string]any{
		"likeCount":  LikeCount,
		"formatDate": FormatDate,
		"card":       Card,
	}
}

// LikeCount renders a like counter as "no likes", "one like" or "N likes".
func LikeCount(n int64) string {
	switch n {
	case 0:
		return "no likes"
	case 1:
		return "one like"
	default:
		return fmt.Sprintf("%d likes", n)
	}
}

// FormatDate renders a message timestamp the way the timeline shows it.
func FormatDate(t time.Time) string {
	return t.UTC().Format("02 January 2006")
}

// MessageCard is the data handed to the partials/message template.
type MessageCard struct {
	Message   models.Message
	Viewer    *models.User
	CSRFToken any
}

// IsOwn reports whether the viewer wrote the message.
func (m MessageCard) IsOwn() bool {
	return m.Viewer != nil && m.Viewer.ID == m.Message.UserID
}

// Card bundles a message with the page's viewer so the partial can decide
// which controls to show.
func Card(msg models.Message, viewer *models.User, csrfToken any) MessageCard {
	return MessageCard{Message: msg, Viewer: viewer, CSRFToken: csrfToken}
}
