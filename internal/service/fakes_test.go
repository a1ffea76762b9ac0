package service_test

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	appErrors "github.com/unclebandit/moderated-board/internal/errors"
	"github.com/unclebandit/moderated-board/internal/model"
	"github.com/unclebandit/moderated-board/internal/repository"
)

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// fakeMessageRepo keeps messages in memory and hands out copies, the way rows come back from a database.
type fakeMessageRepo struct {
	mu       sync.Mutex
	nextID   int
	messages map[int]*model.Message
	users    map[int]*model.User

	updateErr map[int]error
	// offsets records every row offset passed to the paged queries.
	offsets []int
}

func newFakeMessageRepo(users ...*model.User) *fakeMessageRepo {
	r := &fakeMessageRepo{
		messages:  map[int]*model.Message{},
		users:     map[int]*model.User{},
		updateErr: map[int]error{},
	}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeMessageRepo) copyOf(m *model.Message) *model.Message {
	c := *m
	if u, ok := r.users[m.AuthorID]; ok {
		author := *u
		c.Author = &author
	}
	return &c
}

// seed stores a message with the given flags, bypassing Create.
func (r *fakeMessageRepo) seed(author *model.User, subject string, approved, notified bool) *model.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[author.ID] = author
	r.nextID++
	m := &model.Message{
		ID:         r.nextID,
		AuthorID:   author.ID,
		Subject:    subject,
		Content:    subject + " content",
		CreatedAt:  time.Now().UTC().Add(time.Duration(r.nextID) * time.Second),
		IsApproved: approved,
		Notified:   notified,
	}
	r.messages[m.ID] = m
	return r.copyOf(m)
}

func (r *fakeMessageRepo) get(id int) *model.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return nil
	}
	return r.copyOf(m)
}

func (r *fakeMessageRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func (r *fakeMessageRepo) Create(m *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	m.ID = r.nextID
	m.IsApproved = false
	m.Notified = false
	m.CreatedAt = time.Now().UTC().Add(time.Duration(r.nextID) * time.Second)
	stored := *m
	stored.Author = nil
	r.messages[m.ID] = &stored
	return nil
}

func (r *fakeMessageRepo) GetByID(id int) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return nil, appErrors.NewMessageNotFound(id)
	}
	return r.copyOf(m), nil
}

func (r *fakeMessageRepo) Update(m *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.messages[m.ID]
	if !ok {
		return appErrors.NewMessageNotFound(m.ID)
	}
	if err := r.updateErr[m.ID]; err != nil {
		return err
	}
	stored.Subject = m.Subject
	stored.Content = m.Content
	stored.IsApproved = m.IsApproved
	stored.Notified = m.Notified
	return nil
}

func (r *fakeMessageRepo) Delete(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[id]; !ok {
		return appErrors.NewMessageNotFound(id)
	}
	delete(r.messages, id)
	return nil
}

func (r *fakeMessageRepo) UpdateApproval(id int, isApproved, notified bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.messages[id]
	if !ok {
		return appErrors.NewMessageNotFound(id)
	}
	if err := r.updateErr[id]; err != nil {
		return err
	}
	stored.IsApproved = isApproved
	stored.Notified = notified
	return nil
}

func (r *fakeMessageRepo) MarkNotified(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.messages[id]
	if !ok {
		return appErrors.NewMessageNotFound(id)
	}
	stored.Notified = true
	return nil
}

// newestFirst returns matching messages ordered by created_at descending.
func (r *fakeMessageRepo) newestFirst(keep func(m *model.Message) bool) []*model.Message {
	var out []*model.Message
	for _, m := range r.messages {
		if keep(m) {
			out = append(out, r.copyOf(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func window(all []*model.Message, offset, limit int) []*model.Message {
	if offset >= len(all) {
		return []*model.Message{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

// pagedQuery records offset and rejects a negative one, as postgres does.
func (r *fakeMessageRepo) pagedQuery(offset int) error {
	r.offsets = append(r.offsets, offset)
	if offset < 0 {
		return fmt.Errorf("OFFSET must not be negative, got %d", offset)
	}
	return nil
}

func (r *fakeMessageRepo) ListApproved(offset, limit int) ([]*model.Message, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.pagedQuery(offset); err != nil {
		return nil, 0, err
	}
	all := r.newestFirst(func(m *model.Message) bool { return m.IsApproved })
	return window(all, offset, limit), len(all), nil
}

func (r *fakeMessageRepo) ListPending() ([]*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.newestFirst(func(m *model.Message) bool { return !m.IsApproved }), nil
}

func (r *fakeMessageRepo) ListByIDs(ids []int) ([]*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := map[int]bool{}
	for _, id := range ids {
		wanted[id] = true
	}
	return r.newestFirst(func(m *model.Message) bool { return wanted[m.ID] }), nil
}

func (r *fakeMessageRepo) Search(filter model.MessageFilter, offset, limit int) ([]*model.Message, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.pagedQuery(offset); err != nil {
		return nil, 0, err
	}
	all := r.newestFirst(func(m *model.Message) bool {
		if filter.Approved != nil && m.IsApproved != *filter.Approved {
			return false
		}
		if filter.Notified != nil && m.Notified != *filter.Notified {
			return false
		}
		return true
	})
	return window(all, offset, limit), len(all), nil
}

func (r *fakeMessageRepo) Stats() (*model.MessageStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &model.MessageStats{Total: len(r.messages)}
	for _, m := range r.messages {
		switch {
		case !m.IsApproved:
			stats.Pending++
		case m.Notified:
			stats.Approved++
			stats.Notified++
		default:
			stats.Approved++
		}
	}
	return stats, nil
}

var _ repository.MessageRepositoryInterface = (*fakeMessageRepo)(nil)

// fakeUserRepo is an in-memory user store.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int]*model.User{}}
}

func (r *fakeUserRepo) Create(u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return appErrors.ErrUsernameTaken
		}
	}
	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = time.Now().UTC()
	c := *u
	r.users[u.ID] = &c
	return nil
}

func (r *fakeUserRepo) GetByID(id int) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, appErrors.NewUserIDNotFound(id)
	}
	c := *u
	return &c, nil
}

func (r *fakeUserRepo) GetByUsername(username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, appErrors.NewUserNotFound(username)
}

func (r *fakeUserRepo) Exists(username string) (bool, error) {
	_, err := r.GetByUsername(username)
	return err == nil, nil
}

func (r *fakeUserRepo) SetStaff(id int, isStaff bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return appErrors.NewUserIDNotFound(id)
	}
	u.IsStaff = isStaff
	return nil
}

func (r *fakeUserRepo) SetPassword(id int, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return appErrors.NewUserIDNotFound(id)
	}
	u.PasswordHash = passwordHash
	return nil
}

var _ repository.UserRepositoryInterface = (*fakeUserRepo)(nil)

// fakeCaptcha accepts a single fixed answer.
type fakeCaptcha struct {
	answer string
}

func (c *fakeCaptcha) New() string { return "challenge" }

func (c *fakeCaptcha) Verify(id, answer string) bool {
	return answer != "" && answer == c.answer
}

// reviewRecorder records review requests instead of queueing them.
type reviewRecorder struct {
	mu       sync.Mutex
	requests []reviewRequest
}

type reviewRequest struct {
	Kind      string
	MessageID int
	Username  string
}

func (r *reviewRecorder) RequestReview(kind string, m *model.Message, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, reviewRequest{Kind: kind, MessageID: m.ID, Username: username})
}

func (r *reviewRecorder) all() []reviewRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]reviewRequest(nil), r.requests...)
}
