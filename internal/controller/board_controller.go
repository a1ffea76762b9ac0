// internal/controller/board_controller.go
package controller

import (
	"fmt"
	"net/http"

	"github.com/unclebandit/moderated-board/internal/captcha"
	"github.com/unclebandit/moderated-board/internal/service"
	"github.com/unclebandit/moderated-board/internal/session"
	"github.com/unclebandit/moderated-board/internal/view"
)

// BoardController serves the public list and the author-facing message forms.
type BoardController struct {
	*Pages
	Messages *service.MessageService
	Captcha  captcha.Verifier
}

func (c *BoardController) List(w http.ResponseWriter, r *http.Request) {
	page, err := c.Messages.ListApproved(r.URL.Query().Get("page"))
	if err != nil {
		c.fail(w, r, err, "/")
		return
	}
	c.render(w, r, http.StatusOK, "message_list.html", view.Data{"Page": page})
}

func (c *BoardController) PostForm(w http.ResponseWriter, r *http.Request) {
	c.renderPostForm(w, r, http.StatusOK, nil, nil)
}

func (c *BoardController) renderPostForm(w http.ResponseWriter, r *http.Request, status int, form *service.MessageForm, errs service.FieldErrors) {
	c.render(w, r, status, "post_message.html", view.Data{
		"Title":     "Post a message",
		"Form":      form,
		"Errors":    errs,
		"CaptchaID": c.Captcha.New(),
	})
}

func (c *BoardController) Post(w http.ResponseWriter, r *http.Request) {
	form := service.MessageForm{
		Subject:       r.PostFormValue("subject"),
		Content:       r.PostFormValue("content"),
		CaptchaID:     r.PostFormValue("captcha_0"),
		CaptchaAnswer: r.PostFormValue("captcha_1"),
	}

	_, errs, err := c.Messages.Submit(session.UserFrom(r.Context()), form)
	if err != nil {
		c.fail(w, r, err, "/")
		return
	}
	if errs.Any() {
		c.renderPostForm(w, r, http.StatusOK, &form, errs)
		return
	}
	c.redirect(w, r, "/", success("Your message has been submitted and is awaiting approval."))
}

func (c *BoardController) EditForm(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		c.fail(w, r, err, "/")
		return
	}
	m, err := c.Messages.GetForEdit(session.UserFrom(r.Context()), id)
	if err != nil {
		c.fail(w, r, err, "/")
		return
	}
	c.render(w, r, http.StatusOK, "edit_message.html", view.Data{
		"Title":   "Edit message",
		"Message": m,
		"Form":    service.MessageForm{Subject: m.Subject, Content: m.Content},
	})
}

func (c *BoardController) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		c.fail(w, r, err, "/")
		return
	}
	form := service.MessageForm{
		Subject: r.PostFormValue("subject"),
		Content: r.PostFormValue("content"),
	}

	m, errs, err := c.Messages.Edit(session.UserFrom(r.Context()), id, form)
	if err != nil {
		c.fail(w, r, err, "/")
		return
	}
	if errs.Any() {
		c.render(w, r, http.StatusOK, "edit_message.html", view.Data{
			"Title":   "Edit message",
			"Message": m,
			"Form":    form,
			"Errors":  errs,
		})
		return
	}
	c.redirect(w, r, "/", success("Your message has been updated and is awaiting re-approval."))
}

func (c *BoardController) DeleteConfirm(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		c.fail(w, r, err, "/")
		return
	}
	m, err := c.Messages.GetForDelete(session.UserFrom(r.Context()), id)
	if err != nil {
		c.fail(w, r, err, "/")
		return
	}
	c.render(w, r, http.StatusOK, "delete_message_confirm.html", view.Data{
		"Title":   "Delete message",
		"Message": m,
	})
}

func (c *BoardController) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		c.fail(w, r, err, "/")
		return
	}
	m, err := c.Messages.Delete(session.UserFrom(r.Context()), id)
	if err != nil {
		c.fail(w, r, err, "/")
		return
	}
	c.redirect(w, r, "/", success(fmt.Sprintf("Message %q has been deleted.", m.Subject)))
}
