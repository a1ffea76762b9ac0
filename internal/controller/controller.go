// internal/controller/controller.go
package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	appErrors "github.com/unclebandit/moderated-board/internal/errors"
	"github.com/unclebandit/moderated-board/internal/model"
	"github.com/unclebandit/moderated-board/internal/session"
	"github.com/unclebandit/moderated-board/internal/view"
)

// Pages holds what every HTML controller needs to answer a request.
type Pages struct {
	Sessions     *session.Manager
	Views        *view.Renderer
	AdminContact string
	Log          logrus.FieldLogger
}

// render fills the common template keys and writes the page.
func (p *Pages) render(w http.ResponseWriter, r *http.Request, status int, name string, data view.Data) {
	if data == nil {
		data = view.Data{}
	}
	data["User"] = session.UserFrom(r.Context())
	data["Notices"] = p.Sessions.Flashes(w, r)
	data["AdminContact"] = p.AdminContact
	p.Views.Render(w, status, name, data)
}

func (p *Pages) redirect(w http.ResponseWriter, r *http.Request, to string, notices ...model.Notice) {
	if len(notices) > 0 {
		p.Sessions.AddFlash(w, r, notices...)
	}
	http.Redirect(w, r, to, http.StatusFound)
}

// fail turns a service error into the right response. Not-found and permission errors
// go back to the list with a notice; anything else is a 500.
func (p *Pages) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case appErrors.IsNotFound(err):
		p.redirect(w, r, fallback, model.Notice{Level: model.NoticeError, Text: "Message not found."})
	case errors.Is(err, appErrors.ErrForbidden):
		p.redirect(w, r, fallback, model.Notice{Level: model.NoticeError, Text: "You do not have permission to do that."})
	default:
		p.Log.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func success(text string) model.Notice {
	return model.Notice{Level: model.NoticeSuccess, Text: text}
}

// idParam reads {id}; a malformed id is reported as not found.
func idParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, appErrors.NewMessageNotFound(0)
	}
	return id, nil
}
