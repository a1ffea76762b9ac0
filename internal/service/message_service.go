package service

import (
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/moderated-board/internal/captcha"
	appErrors "github.com/unclebandit/moderated-board/internal/errors"
	"github.com/unclebandit/moderated-board/internal/model"
	"github.com/unclebandit/moderated-board/internal/monitoring"
	"github.com/unclebandit/moderated-board/internal/repository"
)

const DefaultPageSize = 10

// MessageForm is the public submission and edit form. The captcha fields are checked on creation only.
type MessageForm struct {
	Subject       string `form:"subject" validate:"required,max=200"`
	Content       string `form:"content" validate:"required"`
	CaptchaID     string `form:"captcha_0" validate:"-"`
	CaptchaAnswer string `form:"captcha_1" validate:"-"`
}

func (f *MessageForm) normalize() {
	f.Subject = strings.TrimSpace(f.Subject)
	f.Content = strings.TrimSpace(f.Content)
}

// MessageService accepts, edits, deletes and lists messages on behalf of signed-in users.
type MessageService struct {
	MessageRepo repository.MessageRepositoryInterface
	Captcha     captcha.Verifier
	Reviews     ReviewRequester
	PageSize    int
	Log         logrus.FieldLogger
}

// Submit stores a new pending message by author. Invalid input, including a failed captcha,
// returns field errors and stores nothing.
func (s *MessageService) Submit(author *model.User, form MessageForm) (*model.Message, FieldErrors, error) {
	form.normalize()
	errs := validateForm(form)
	if !s.Captcha.Verify(form.CaptchaID, form.CaptchaAnswer) {
		errs.Add("captcha", "Invalid CAPTCHA")
	}
	if errs.Any() {
		return nil, errs, nil
	}

	m := &model.Message{
		AuthorID: author.ID,
		Author:   author,
		Subject:  form.Subject,
		Content:  form.Content,
	}
	if err := s.MessageRepo.Create(m); err != nil {
		return nil, nil, err
	}
	monitoring.MessagesPosted.Inc()
	s.Log.WithFields(logrus.Fields{"message_id": m.ID, "username": author.Username}).Info("Message submitted")

	s.Reviews.RequestReview(model.NotificationNewMessage, m, author.Username)
	return m, nil, nil
}

// GetForEdit loads a message the caller is allowed to edit: only its author may.
func (s *MessageService) GetForEdit(caller *model.User, id int) (*model.Message, error) {
	m, err := s.MessageRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if caller == nil || m.AuthorID != caller.ID {
		return nil, appErrors.ErrForbidden
	}
	return m, nil
}

// Edit rewrites subject and content. The edited message goes back to pending and loses its
// notified flag, and administrators are asked to review it again.
func (s *MessageService) Edit(caller *model.User, id int, form MessageForm) (*model.Message, FieldErrors, error) {
	m, err := s.GetForEdit(caller, id)
	if err != nil {
		return nil, nil, err
	}

	form.normalize()
	if errs := validateForm(form); errs.Any() {
		return m, errs, nil
	}

	m.Subject = form.Subject
	m.Content = form.Content
	m.IsApproved = false
	m.Notified = false
	if err := s.MessageRepo.Update(m); err != nil {
		return nil, nil, err
	}
	s.Log.WithFields(logrus.Fields{"message_id": m.ID, "username": caller.Username}).Info("Message edited")

	s.Reviews.RequestReview(model.NotificationEditedMessage, m, caller.Username)
	return m, nil, nil
}

// GetForDelete loads a message the caller may delete: its author or any administrator.
func (s *MessageService) GetForDelete(caller *model.User, id int) (*model.Message, error) {
	m, err := s.MessageRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if caller == nil || (m.AuthorID != caller.ID && !caller.IsStaff) {
		return nil, appErrors.ErrForbidden
	}
	return m, nil
}

// Delete removes the message for good and returns what was deleted.
func (s *MessageService) Delete(caller *model.User, id int) (*model.Message, error) {
	m, err := s.GetForDelete(caller, id)
	if err != nil {
		return nil, err
	}
	if err := s.MessageRepo.Delete(id); err != nil {
		return nil, err
	}
	s.Log.WithFields(logrus.Fields{"message_id": id, "username": caller.Username}).Info("Message deleted")
	return m, nil
}

// ListApproved returns the requested page of approved messages. A missing or malformed page
// number gives the first page; a number past the end gives the last page.
func (s *MessageService) ListApproved(pageParam string) (*model.Page, error) {
	pageSize := s.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	number, err := strconv.Atoi(strings.TrimSpace(pageParam))
	if err != nil || number < 1 {
		number = 1
	}

	number, offset := pageOffset(number, pageSize)
	messages, total, err := s.MessageRepo.ListApproved(offset, pageSize)
	if err != nil {
		return nil, err
	}

	pages := totalPages(total, pageSize)
	if number > pages {
		number = pages
		messages, total, err = s.MessageRepo.ListApproved((number-1)*pageSize, pageSize)
		if err != nil {
			return nil, err
		}
	}

	return &model.Page{
		Messages:   messages,
		Number:     number,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: pages,
	}, nil
}
