package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/unclebandit/moderated-board/internal/model"
	"github.com/unclebandit/moderated-board/internal/monitoring"
	"github.com/unclebandit/moderated-board/internal/repository"
)

// ModerationService moves messages between pending and approved. It holds no state of its own;
// every operation reads and writes through MessageRepo.
//
// The pending check, the approval mail and the notified write are not wrapped in a transaction.
// Two administrators approving the same message at the same moment can both send the mail.
type ModerationService struct {
	MessageRepo repository.MessageRepositoryInterface
	Notifier    AuthorNotifier
	Log         logrus.FieldLogger
}

// ApprovalOutcome reports what happened to a single message.
type ApprovalOutcome struct {
	MessageID int
	Changed   bool
	Notified  bool
	Notices   []model.Notice
}

func (o *ApprovalOutcome) add(level model.NoticeLevel, format string, args ...any) {
	o.Notices = append(o.Notices, model.Notice{Level: level, Text: fmt.Sprintf(format, args...)})
}

// BatchResult aggregates a bulk action.
type BatchResult struct {
	Selected int
	Changed  int
	Notices  []model.Notice
}

// AdminMessageForm is the administrator record-editing form.
type AdminMessageForm struct {
	Subject    string `form:"subject" validate:"required,max=200"`
	Content    string `form:"content" validate:"required"`
	IsApproved bool   `form:"is_approved"`
}

// Approve applies the approval policy to one message.
func (s *ModerationService) Approve(id int) (*ApprovalOutcome, error) {
	m, err := s.MessageRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	return s.approve(m)
}

// approve moves a pending message to approved and, on that first transition only, mails the author.
// A failed mail leaves notified=false and is reported as an error notice; the approval stays.
func (s *ModerationService) approve(m *model.Message) (*ApprovalOutcome, error) {
	out := &ApprovalOutcome{MessageID: m.ID}
	if m.IsApproved {
		out.add(model.NoticeInfo, "Message %q was already approved.", m.Subject)
		return out, nil
	}

	if err := s.MessageRepo.UpdateApproval(m.ID, true, m.Notified); err != nil {
		return nil, fmt.Errorf("approve message %d: %w", m.ID, err)
	}
	m.IsApproved = true
	out.Changed = true
	monitoring.MessagesApproved.Inc()
	out.add(model.NoticeSuccess, "Message %q has been approved.", m.Subject)

	s.notifyAuthor(m, out)
	return out, nil
}

// notifyAuthor sends the approval mail unless the author was already notified or has no address.
func (s *ModerationService) notifyAuthor(m *model.Message, out *ApprovalOutcome) {
	if m.Notified {
		return
	}

	log := s.Log.WithFields(logrus.Fields{"message_id": m.ID, "username": m.AuthorName()})
	if !m.Author.HasEmail() {
		log.Warn("Author has no email address, approval not notified")
		out.add(model.NoticeWarning, "Author %s has no email address; no notification was sent.", m.AuthorName())
		return
	}

	if err := s.Notifier.NotifyAuthorApproved(m); err != nil {
		log.WithError(err).Error("Failed to send approval notification")
		out.add(model.NoticeError, "Failed to send notification email to %s: %v", m.AuthorName(), err)
		return
	}

	if err := s.MessageRepo.MarkNotified(m.ID); err != nil {
		log.WithError(err).Error("Approval mail sent but notified flag not saved")
		out.add(model.NoticeError, "Notification was sent to %s but could not be recorded: %v", m.AuthorName(), err)
		return
	}
	m.Notified = true
	out.Notified = true
	out.add(model.NoticeInfo, "Notification email sent to %s.", m.AuthorName())
}

// Unapprove moves a message back to pending and clears notified. No mail is sent.
func (s *ModerationService) Unapprove(id int) (*ApprovalOutcome, error) {
	m, err := s.MessageRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	return s.unapprove(m)
}

func (s *ModerationService) unapprove(m *model.Message) (*ApprovalOutcome, error) {
	out := &ApprovalOutcome{MessageID: m.ID}
	if err := s.MessageRepo.UpdateApproval(m.ID, false, false); err != nil {
		return nil, fmt.Errorf("unapprove message %d: %w", m.ID, err)
	}
	out.Changed = m.IsApproved || m.Notified
	m.IsApproved = false
	m.Notified = false
	out.add(model.NoticeSuccess, "Message %q has been unapproved.", m.Subject)
	return out, nil
}

// BulkApprove approves each selected message independently. Per-message warnings and errors are kept;
// a failure on one message does not stop the rest.
func (s *ModerationService) BulkApprove(ids []int) (*BatchResult, error) {
	messages, err := s.MessageRepo.ListByIDs(lo.Uniq(ids))
	if err != nil {
		return nil, err
	}
	res := s.approveEach(messages)
	res.Notices = append(res.Notices, model.Notice{
		Level: model.NoticeSuccess,
		Text:  fmt.Sprintf("Successfully approved %d message(s).", res.Changed),
	})
	return res, nil
}

// BulkUnapprove clears both flags on each selected message.
func (s *ModerationService) BulkUnapprove(ids []int) (*BatchResult, error) {
	messages, err := s.MessageRepo.ListByIDs(lo.Uniq(ids))
	if err != nil {
		return nil, err
	}

	res := &BatchResult{Selected: len(messages)}
	for _, m := range messages {
		out, err := s.unapprove(m)
		if err != nil {
			s.Log.WithError(err).WithField("message_id", m.ID).Error("Unapprove failed")
			res.Notices = append(res.Notices, model.Notice{Level: model.NoticeError, Text: err.Error()})
			continue
		}
		if out.Changed {
			res.Changed++
		}
	}
	res.Notices = append(res.Notices, model.Notice{
		Level: model.NoticeSuccess,
		Text:  fmt.Sprintf("Successfully unapproved %d message(s).", res.Changed),
	})
	return res, nil
}

func (s *ModerationService) PendingCount() (int, error) {
	stats, err := s.MessageRepo.Stats()
	if err != nil {
		return 0, err
	}
	return stats.Pending, nil
}

// ApproveAllPending approves every message that is pending right now.
func (s *ModerationService) ApproveAllPending() (*BatchResult, error) {
	pending, err := s.MessageRepo.ListPending()
	if err != nil {
		return nil, err
	}
	res := s.approveEach(pending)
	res.Notices = append(res.Notices, model.Notice{
		Level: model.NoticeSuccess,
		Text:  fmt.Sprintf("Successfully approved %d pending message(s).", res.Changed),
	})
	return res, nil
}

func (s *ModerationService) approveEach(messages []*model.Message) *BatchResult {
	res := &BatchResult{Selected: len(messages)}
	for _, m := range messages {
		out, err := s.approve(m)
		if err != nil {
			s.Log.WithError(err).WithField("message_id", m.ID).Error("Approve failed")
			res.Notices = append(res.Notices, model.Notice{Level: model.NoticeError, Text: err.Error()})
			continue
		}
		if out.Changed {
			res.Changed++
		}
		// the summary replaces per-message success lines
		res.Notices = append(res.Notices, lo.Filter(out.Notices, func(n model.Notice, _ int) bool {
			return n.Level == model.NoticeWarning || n.Level == model.NoticeError
		})...)
	}
	return res
}

// Save applies the administrator edit form. The author is mailed only when this very save flips
// is_approved from false to true and the message was not notified yet. Saving a message as not
// approved clears notified.
func (s *ModerationService) Save(id int, form AdminMessageForm) (*ApprovalOutcome, FieldErrors, error) {
	previous, err := s.MessageRepo.GetByID(id)
	if err != nil {
		return nil, nil, err
	}

	form.Subject = strings.TrimSpace(form.Subject)
	form.Content = strings.TrimSpace(form.Content)
	if errs := validateForm(form); errs.Any() {
		return nil, errs, nil
	}

	wasPending := !previous.IsApproved

	updated := *previous
	updated.Subject = form.Subject
	updated.Content = form.Content
	updated.IsApproved = form.IsApproved
	if !updated.IsApproved {
		updated.Notified = false
	}

	if err := s.MessageRepo.Update(&updated); err != nil {
		return nil, nil, fmt.Errorf("save message %d: %w", id, err)
	}

	out := &ApprovalOutcome{MessageID: id, Changed: previous.IsApproved != updated.IsApproved}
	out.add(model.NoticeSuccess, "Message %q was saved.", updated.Subject)

	shouldNotify := wasPending && updated.IsApproved && !updated.Notified
	if shouldNotify {
		monitoring.MessagesApproved.Inc()
		s.notifyAuthor(&updated, out)
	}
	return out, nil, nil
}

// Search backs the administrator changelist.
func (s *ModerationService) Search(filter model.MessageFilter, page, pageSize int) (*model.Page, error) {
	if pageSize < 1 {
		pageSize = 50
	}
	page, offset := pageOffset(page, pageSize)
	messages, total, err := s.MessageRepo.Search(filter, offset, pageSize)
	if err != nil {
		return nil, err
	}
	return &model.Page{
		Messages:   messages,
		Number:     page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

func (s *ModerationService) Get(id int) (*model.Message, error) {
	return s.MessageRepo.GetByID(id)
}

func (s *ModerationService) Stats() (*model.MessageStats, error) {
	return s.MessageRepo.Stats()
}

// pageOffset returns the page number, raised to 1 and capped so that the row offset
// of that page still fits in an int, together with that offset.
func pageOffset(number, pageSize int) (int, int) {
	if number < 1 {
		number = 1
	}
	if maxPage := math.MaxInt / pageSize; number > maxPage {
		number = maxPage
	}
	return number, (number - 1) * pageSize
}

func totalPages(total, pageSize int) int {
	if total == 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}
