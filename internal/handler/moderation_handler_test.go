package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/moderated-board/internal/db"
	"github.com/unclebandit/moderated-board/internal/handler"
	"github.com/unclebandit/moderated-board/internal/model"
	"github.com/unclebandit/moderated-board/internal/repository"
	"github.com/unclebandit/moderated-board/internal/service"
)

func newRouter(t *testing.T) (http.Handler, *repository.MessageRepository, *model.User) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	conn, err := db.Open("sqlite3", "file::memory:?_foreign_keys=on", log)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn, "sqlite3"))
	t.Cleanup(func() { conn.Close() })

	users := &repository.UserRepository{DB: conn}
	author := &model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	require.NoError(t, users.Create(author))

	messages := &repository.MessageRepository{DB: conn}
	h := handler.NewModerationHandler(&service.ModerationService{MessageRepo: messages, Log: log}, log)

	r := chi.NewRouter()
	r.Get("/stats", h.StatsHandler)
	r.Get("/messages", h.ListMessagesHandler)
	r.Get("/messages/{id}", h.GetMessageHandler)
	return r, messages, author
}

func TestListMessagesHandler_FilterAndPagination(t *testing.T) {
	r, messages, author := newRouter(t)
	for _, subject := range []string{"one", "two", "three"} {
		require.NoError(t, messages.Create(&model.Message{AuthorID: author.ID, Subject: subject, Content: "c"}))
	}

	req := httptest.NewRequest(http.MethodGet, "/messages?approved=false&page_size=2", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data       []model.Message `json:"data"`
		Pagination map[string]int  `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Data, 2)
	assert.Equal(t, 3, body.Pagination["total_count"])
	assert.Equal(t, 2, body.Pagination["total_pages"])

	req = httptest.NewRequest(http.MethodGet, "/messages?approved=true", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Data)
}

func TestGetMessageHandler(t *testing.T) {
	r, messages, author := newRouter(t)
	m := &model.Message{AuthorID: author.ID, Subject: "Hello", Content: "World"}
	require.NoError(t, messages.Create(m))

	tests := []struct {
		path string
		code int
	}{
		{"/messages/abc", http.StatusBadRequest},
		{"/messages/999", http.StatusNotFound},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, tt.code, w.Code, tt.path)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/messages/1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got model.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Hello", got.Subject)
	assert.Equal(t, "alice", got.Author.Username)
}

func TestStatsHandler(t *testing.T) {
	r, messages, author := newRouter(t)
	require.NoError(t, messages.Create(&model.Message{AuthorID: author.ID, Subject: "s", Content: "c"}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total":1,"pending":1,"approved":0,"notified":0}`, w.Body.String())
}
