package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	appErrors "github.com/unclebandit/moderated-board/internal/errors"
	"github.com/unclebandit/moderated-board/internal/model"
)

type MessageRepositoryInterface interface {
	// Message CRUD
	Create(m *model.Message) error
	GetByID(id int) (*model.Message, error)
	Update(m *model.Message) error
	Delete(id int) error

	// Moderation state
	UpdateApproval(id int, isApproved, notified bool) error
	MarkNotified(id int) error

	// Listings
	ListApproved(offset, limit int) ([]*model.Message, int, error)
	ListPending() ([]*model.Message, error)
	ListByIDs(ids []int) ([]*model.Message, error)
	Search(filter model.MessageFilter, offset, limit int) ([]*model.Message, int, error)
	Stats() (*model.MessageStats, error)
}

type MessageRepository struct {
	DB *sql.DB
}

const messageColumns = `
    m.id, m.author_id, m.subject, m.content, m.created_at, m.is_approved, m.notified,
    u.id, u.username, u.email, u.is_staff, u.created_at
    FROM messages m
    JOIN users u ON u.id = m.author_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*model.Message, error) {
	m := &model.Message{Author: &model.User{}}
	err := row.Scan(
		&m.ID, &m.AuthorID, &m.Subject, &m.Content, &m.CreatedAt, &m.IsApproved, &m.Notified,
		&m.Author.ID, &m.Author.Username, &m.Author.Email, &m.Author.IsStaff, &m.Author.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func scanMessages(rows *sql.Rows) ([]*model.Message, error) {
	defer rows.Close()

	messages := []*model.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// ====================== Message CRUD ======================

// Create stores a new message. New messages are always pending and not notified.
func (r *MessageRepository) Create(m *model.Message) error {
	m.CreatedAt = time.Now().UTC()
	m.IsApproved = false
	m.Notified = false
	query := `
        INSERT INTO messages (author_id, subject, content, created_at, is_approved, notified)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	return r.DB.QueryRow(query, m.AuthorID, m.Subject, m.Content, m.CreatedAt, m.IsApproved, m.Notified).Scan(&m.ID)
}

func (r *MessageRepository) GetByID(id int) (*model.Message, error) {
	query := `SELECT` + messageColumns + ` WHERE m.id = $1`
	m, err := scanMessage(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewMessageNotFound(id)
		}
		return nil, err
	}
	return m, nil
}

// Update writes subject, content and both moderation flags. created_at and author never change.
func (r *MessageRepository) Update(m *model.Message) error {
	query := `
        UPDATE messages
        SET subject=$1, content=$2, is_approved=$3, notified=$4
        WHERE id=$5
    `
	res, err := r.DB.Exec(query, m.Subject, m.Content, m.IsApproved, m.Notified, m.ID)
	if err != nil {
		return err
	}
	return requireRow(res, m.ID)
}

func (r *MessageRepository) Delete(id int) error {
	res, err := r.DB.Exec(`DELETE FROM messages WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

// ====================== Moderation state ======================

func (r *MessageRepository) UpdateApproval(id int, isApproved, notified bool) error {
	res, err := r.DB.Exec(`UPDATE messages SET is_approved=$1, notified=$2 WHERE id=$3`, isApproved, notified, id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

func (r *MessageRepository) MarkNotified(id int) error {
	res, err := r.DB.Exec(`UPDATE messages SET notified=$1 WHERE id=$2`, true, id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

// ====================== Listings ======================

// ListApproved returns one page of approved messages, newest first, with the total approved count.
func (r *MessageRepository) ListApproved(offset, limit int) ([]*model.Message, int, error) {
	var total int
	if err := r.DB.QueryRow(`SELECT COUNT(*) FROM messages WHERE is_approved = $1`, true).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT` + messageColumns + `
        WHERE m.is_approved = $1
        ORDER BY m.created_at DESC, m.id DESC
        LIMIT $2 OFFSET $3`
	rows, err := r.DB.Query(query, true, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	messages, err := scanMessages(rows)
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

func (r *MessageRepository) ListPending() ([]*model.Message, error) {
	query := `SELECT` + messageColumns + `
        WHERE m.is_approved = $1
        ORDER BY m.created_at DESC, m.id DESC`
	rows, err := r.DB.Query(query, false)
	if err != nil {
		return nil, err
	}
	return scanMessages(rows)
}

// ListByIDs loads the given messages in default order. Unknown ids are skipped.
func (r *MessageRepository) ListByIDs(ids []int) ([]*model.Message, error) {
	if len(ids) == 0 {
		return []*model.Message{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := `SELECT` + messageColumns + `
        WHERE m.id IN (` + strings.Join(placeholders, ", ") + `)
        ORDER BY m.created_at DESC, m.id DESC`
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	return scanMessages(rows)
}

// Search backs the administrator changelist: filters on both flags and author, free text over
// subject, content and author username.
func (r *MessageRepository) Search(filter model.MessageFilter, offset, limit int) ([]*model.Message, int, error) {
	where, args := filterClause(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM messages m JOIN users u ON u.id = m.author_id` + where
	if err := r.DB.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	argPos := len(args) + 1
	query := `SELECT` + messageColumns + where +
		fmt.Sprintf(" ORDER BY m.created_at DESC, m.id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	messages, err := scanMessages(rows)
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

// likeEscaper makes LIKE wildcards in search text match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func filterClause(filter model.MessageFilter) (string, []interface{}) {
	clause := " WHERE 1=1"
	args := []interface{}{}
	argPos := 1

	if filter.Approved != nil {
		clause += fmt.Sprintf(" AND m.is_approved=$%d", argPos)
		args = append(args, *filter.Approved)
		argPos++
	}
	if filter.Notified != nil {
		clause += fmt.Sprintf(" AND m.notified=$%d", argPos)
		args = append(args, *filter.Notified)
		argPos++
	}
	if filter.Author != "" {
		clause += fmt.Sprintf(" AND u.username=$%d", argPos)
		args = append(args, filter.Author)
		argPos++
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		clause += fmt.Sprintf(
			` AND (LOWER(m.subject) LIKE $%d ESCAPE '\' OR LOWER(m.content) LIKE $%d ESCAPE '\'`+
				` OR LOWER(u.username) LIKE $%d ESCAPE '\')`,
			argPos, argPos, argPos,
		)
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(q))+"%")
	}
	return clause, args
}

func (r *MessageRepository) Stats() (*model.MessageStats, error) {
	query := `SELECT is_approved, notified, COUNT(*) FROM messages GROUP BY is_approved, notified`
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &model.MessageStats{}
	for rows.Next() {
		var approved, notified bool
		var count int
		if err := rows.Scan(&approved, &notified, &count); err != nil {
			return nil, err
		}
		stats.Total += count
		if approved {
			stats.Approved += count
		} else {
			stats.Pending += count
		}
		if notified {
			stats.Notified += count
		}
	}
	return stats, rows.Err()
}

func requireRow(res sql.Result, id int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewMessageNotFound(id)
	}
	return nil
}

var _ MessageRepositoryInterface = (*MessageRepository)(nil)
