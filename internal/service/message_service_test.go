package service_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/moderated-board/internal/errors"
	"github.com/unclebandit/moderated-board/internal/model"
	"github.com/unclebandit/moderated-board/internal/service"
)

type submissionFixture struct {
	repo    *fakeMessageRepo
	reviews *reviewRecorder
	svc     *service.MessageService
}

func newSubmissionFixture() *submissionFixture {
	repo := newFakeMessageRepo(alice, bob)
	reviews := &reviewRecorder{}
	return &submissionFixture{
		repo:    repo,
		reviews: reviews,
		svc: &service.MessageService{
			MessageRepo: repo,
			Captcha:     &fakeCaptcha{answer: "right"},
			Reviews:     reviews,
			PageSize:    10,
			Log:         quietLogger(),
		},
	}
}

func TestSubmit_CreatesPendingMessage(t *testing.T) {
	f := newSubmissionFixture()

	m, errs, err := f.svc.Submit(alice, service.MessageForm{
		Subject:       "  First post  ",
		Content:       "Hello everyone",
		CaptchaID:     "challenge",
		CaptchaAnswer: "right",
	})
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.NotNil(t, m)

	stored := f.repo.get(m.ID)
	assert.Equal(t, "First post", stored.Subject)
	assert.Equal(t, alice.ID, stored.AuthorID)
	assert.False(t, stored.IsApproved)
	assert.False(t, stored.Notified)

	requests := f.reviews.all()
	require.Len(t, requests, 1)
	assert.Equal(t, model.NotificationNewMessage, requests[0].Kind)
	assert.Equal(t, "alice", requests[0].Username)
}

func TestSubmit_MissingSubject(t *testing.T) {
	f := newSubmissionFixture()

	m, errs, err := f.svc.Submit(alice, service.MessageForm{
		Content:       "No subject here",
		CaptchaID:     "challenge",
		CaptchaAnswer: "right",
	})
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.True(t, errs.Has("subject"))
	assert.Equal(t, "This field is required.", errs.First("subject"))
	assert.Zero(t, f.repo.count())
	assert.Empty(t, f.reviews.all())
}

func TestSubmit_SubjectTooLong(t *testing.T) {
	f := newSubmissionFixture()
	long := make([]rune, 201)
	for i := range long {
		long[i] = 'é'
	}

	_, errs, err := f.svc.Submit(alice, service.MessageForm{
		Subject:       string(long),
		Content:       "body",
		CaptchaAnswer: "right",
	})
	require.NoError(t, err)
	assert.True(t, errs.Has("subject"))
	assert.Zero(t, f.repo.count())
}

func TestSubmit_FailedCaptcha(t *testing.T) {
	f := newSubmissionFixture()

	_, errs, err := f.svc.Submit(alice, service.MessageForm{
		Subject:       "Spam",
		Content:       "Buy now",
		CaptchaID:     "challenge",
		CaptchaAnswer: "wrong",
	})
	require.NoError(t, err)
	assert.Equal(t, "Invalid CAPTCHA", errs.First("captcha"))
	assert.False(t, errs.Has("subject"))
	assert.Zero(t, f.repo.count())
	assert.Empty(t, f.reviews.all())
}

func TestEdit_ResetsApprovalAndRequestsReview(t *testing.T) {
	f := newSubmissionFixture()
	m := f.repo.seed(alice, "Live", true, true)

	edited, errs, err := f.svc.Edit(alice, m.ID, service.MessageForm{Subject: "Live", Content: "changed"})
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.False(t, edited.IsApproved)

	stored := f.repo.get(m.ID)
	assert.False(t, stored.IsApproved)
	assert.False(t, stored.Notified)
	assert.Equal(t, "changed", stored.Content)

	page, err := f.svc.ListApproved("1")
	require.NoError(t, err)
	assert.Empty(t, page.Messages)

	requests := f.reviews.all()
	require.Len(t, requests, 1)
	assert.Equal(t, model.NotificationEditedMessage, requests[0].Kind)
}

func TestEdit_NoCaptchaRequired(t *testing.T) {
	f := newSubmissionFixture()
	m := f.repo.seed(alice, "Mine", false, false)

	_, errs, err := f.svc.Edit(alice, m.ID, service.MessageForm{Subject: "Mine", Content: "new"})
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestEdit_OnlyAuthor(t *testing.T) {
	f := newSubmissionFixture()
	m := f.repo.seed(alice, "Mine", true, true)
	admin := &model.User{ID: 9, Username: "root", IsStaff: true}

	_, _, err := f.svc.Edit(bob, m.ID, service.MessageForm{Subject: "x", Content: "y"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, _, err = f.svc.Edit(admin, m.ID, service.MessageForm{Subject: "x", Content: "y"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	assert.True(t, f.repo.get(m.ID).IsApproved)
	assert.Empty(t, f.reviews.all())
}

func TestEdit_NotFound(t *testing.T) {
	f := newSubmissionFixture()

	_, _, err := f.svc.Edit(alice, 77, service.MessageForm{Subject: "x", Content: "y"})
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestEdit_InvalidFormKeepsRecord(t *testing.T) {
	f := newSubmissionFixture()
	m := f.repo.seed(alice, "Live", true, true)

	_, errs, err := f.svc.Edit(alice, m.ID, service.MessageForm{Subject: "Live"})
	require.NoError(t, err)
	assert.True(t, errs.Has("content"))
	assert.True(t, f.repo.get(m.ID).IsApproved)
	assert.Empty(t, f.reviews.all())
}

func TestDelete_AuthorOrStaff(t *testing.T) {
	f := newSubmissionFixture()
	mine := f.repo.seed(alice, "Mine", true, true)
	other := f.repo.seed(alice, "Also mine", false, false)
	admin := &model.User{ID: 9, Username: "root", IsStaff: true}

	_, err := f.svc.Delete(bob, mine.ID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.NotNil(t, f.repo.get(mine.ID))

	deleted, err := f.svc.Delete(alice, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mine", deleted.Subject)
	assert.Nil(t, f.repo.get(mine.ID))

	_, err = f.svc.Delete(admin, other.ID)
	require.NoError(t, err)
	assert.Zero(t, f.repo.count())

	_, err = f.svc.Delete(admin, other.ID)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestListApproved_OnlyApprovedNewestFirst(t *testing.T) {
	f := newSubmissionFixture()
	f.repo.seed(alice, "old", true, true)
	f.repo.seed(alice, "hidden", false, false)
	f.repo.seed(bob, "new", true, false)

	page, err := f.svc.ListApproved("")
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "new", page.Messages[0].Subject)
	assert.Equal(t, "old", page.Messages[1].Subject)
	for _, m := range page.Messages {
		assert.True(t, m.IsApproved)
	}
}

func TestListApproved_Pagination(t *testing.T) {
	f := newSubmissionFixture()
	for i := 0; i < 23; i++ {
		f.repo.seed(alice, fmt.Sprintf("m%02d", i), true, true)
	}

	tests := []struct {
		param      string
		wantNumber int
		wantLen    int
	}{
		{"", 1, 10},
		{"2", 2, 10},
		{"3", 3, 3},
		{"99", 3, 3},
		{"abc", 1, 10},
		{"-4", 1, 10},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			page, err := f.svc.ListApproved(tt.param)
			require.NoError(t, err)
			assert.Equal(t, tt.wantNumber, page.Number)
			assert.Len(t, page.Messages, tt.wantLen)
			assert.Equal(t, 3, page.TotalPages)
			assert.Equal(t, 23, page.TotalCount)
		})
	}
}

func TestListApproved_HugePageNumberGivesLastPage(t *testing.T) {
	f := newSubmissionFixture()
	for i := 0; i < 23; i++ {
		f.repo.seed(alice, fmt.Sprintf("m%02d", i), true, true)
	}

	page, err := f.svc.ListApproved("9223372036854775807")
	require.NoError(t, err)
	assert.Equal(t, 3, page.Number)
	assert.Len(t, page.Messages, 3)
	for _, offset := range f.repo.offsets {
		assert.GreaterOrEqual(t, offset, 0)
	}
}

func TestListApproved_EmptyBoard(t *testing.T) {
	f := newSubmissionFixture()

	page, err := f.svc.ListApproved("5")
	require.NoError(t, err)
	assert.Equal(t, 1, page.Number)
	assert.Empty(t, page.Messages)
	assert.False(t, page.HasNext())
	assert.False(t, page.HasPrevious())
}

func TestDelete_UnknownCaller(t *testing.T) {
	f := newSubmissionFixture()
	m := f.repo.seed(alice, "Mine", false, false)

	_, err := f.svc.Delete(nil, m.ID)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}
