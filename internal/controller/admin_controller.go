// internal/controller/admin_controller.go
package controller

import (
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/unclebandit/moderated-board/internal/model"
	"github.com/unclebandit/moderated-board/internal/service"
	"github.com/unclebandit/moderated-board/internal/view"
)

const (
	actionApprove   = "approve_and_notify"
	actionUnapprove = "unapprove"

	adminPageSize = 50
	adminListPath = "/admin/messages"
)

// AdminController is the moderation surface. Every route sits behind RequireStaff.
type AdminController struct {
	*Pages
	Moderation *service.ModerationService
}

// parseFlag reads a yes/no filter value; anything else means no filter.
func parseFlag(v string) *bool {
	switch v {
	case "1", "true", "yes":
		return lo.ToPtr(true)
	case "0", "false", "no":
		return lo.ToPtr(false)
	}
	return nil
}

func (c *AdminController) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.MessageFilter{
		Approved: parseFlag(q.Get("approved")),
		Notified: parseFlag(q.Get("notified")),
		Author:   strings.TrimSpace(q.Get("author")),
		Search:   strings.TrimSpace(q.Get("q")),
	}
	pageNumber, _ := strconv.Atoi(q.Get("page"))

	page, err := c.Moderation.Search(filter, pageNumber, adminPageSize)
	if err != nil {
		c.fail(w, r, err, "/")
		return
	}
	pending, err := c.Moderation.PendingCount()
	if err != nil {
		c.fail(w, r, err, "/")
		return
	}

	keep := url.Values{}
	for _, key := range []string{"q", "approved", "notified", "author"} {
		if v := q.Get(key); v != "" {
			keep.Set(key, v)
		}
	}
	filterQuery := keep.Encode()
	if filterQuery != "" {
		filterQuery += "&"
	}

	c.render(w, r, http.StatusOK, "admin/message_list.html", view.Data{
		"Title":          "Moderate messages",
		"Page":           page,
		"PendingCount":   pending,
		"Query":          filter.Search,
		"AuthorFilter":   filter.Author,
		"ApprovedFilter": q.Get("approved"),
		"NotifiedFilter": q.Get("notified"),
		"FilterQuery":    template.URL(filterQuery),
	})
}

// selectedIDs reads the ticked checkboxes, ignoring anything that is not an id.
func selectedIDs(r *http.Request) []int {
	if err := r.ParseForm(); err != nil {
		return nil
	}
	return lo.FilterMap(r.PostForm["ids"], func(raw string, _ int) (int, bool) {
		id, err := strconv.Atoi(raw)
		return id, err == nil && id > 0
	})
}

// Bulk runs the selected changelist action.
func (c *AdminController) Bulk(w http.ResponseWriter, r *http.Request) {
	ids := selectedIDs(r)
	if len(ids) == 0 {
		c.redirect(w, r, adminListPath, model.Notice{
			Level: model.NoticeWarning,
			Text:  "Items must be selected in order to perform actions on them. No items have been changed.",
		})
		return
	}

	var (
		res *service.BatchResult
		err error
	)
	switch r.PostFormValue("action") {
	case actionApprove:
		res, err = c.Moderation.BulkApprove(ids)
	case actionUnapprove:
		res, err = c.Moderation.BulkUnapprove(ids)
	default:
		c.redirect(w, r, adminListPath, model.Notice{Level: model.NoticeWarning, Text: "No action selected."})
		return
	}
	if err != nil {
		c.fail(w, r, err, adminListPath)
		return
	}
	c.redirect(w, r, adminListPath, res.Notices...)
}

// Approve is the per-record "approve and notify" button.
func (c *AdminController) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		c.fail(w, r, err, adminListPath)
		return
	}
	out, err := c.Moderation.Approve(id)
	if err != nil {
		c.fail(w, r, err, adminListPath)
		return
	}
	c.redirect(w, r, adminListPath, out.Notices...)
}

func (c *AdminController) ChangeForm(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		c.fail(w, r, err, adminListPath)
		return
	}
	m, err := c.Moderation.Get(id)
	if err != nil {
		c.fail(w, r, err, adminListPath)
		return
	}
	c.render(w, r, http.StatusOK, "admin/message_change.html", view.Data{
		"Title":   "Change message",
		"Message": m,
		"Form":    service.AdminMessageForm{Subject: m.Subject, Content: m.Content, IsApproved: m.IsApproved},
	})
}

func (c *AdminController) Change(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		c.fail(w, r, err, adminListPath)
		return
	}
	form := service.AdminMessageForm{
		Subject:    r.PostFormValue("subject"),
		Content:    r.PostFormValue("content"),
		IsApproved: r.PostFormValue("is_approved") != "",
	}

	out, errs, err := c.Moderation.Save(id, form)
	if err != nil {
		c.fail(w, r, err, adminListPath)
		return
	}
	if errs.Any() {
		m, err := c.Moderation.Get(id)
		if err != nil {
			c.fail(w, r, err, adminListPath)
			return
		}
		c.render(w, r, http.StatusOK, "admin/message_change.html", view.Data{
			"Title":   "Change message",
			"Message": m,
			"Form":    form,
			"Errors":  errs,
		})
		return
	}
	c.redirect(w, r, adminListPath, out.Notices...)
}

func (c *AdminController) ApproveAllPendingConfirm(w http.ResponseWriter, r *http.Request) {
	pending, err := c.Moderation.PendingCount()
	if err != nil {
		c.fail(w, r, err, adminListPath)
		return
	}
	c.render(w, r, http.StatusOK, "admin/approve_all_pending_confirmation.html", view.Data{
		"Title":        "Approve all pending messages",
		"PendingCount": pending,
	})
}

func (c *AdminController) ApproveAllPending(w http.ResponseWriter, r *http.Request) {
	res, err := c.Moderation.ApproveAllPending()
	if err != nil {
		c.fail(w, r, err, adminListPath)
		return
	}
	c.Log.WithField("approved", res.Changed).Info("Approved all pending messages")
	c.redirect(w, r, adminListPath, res.Notices...)
}
