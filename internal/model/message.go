// internal/model/message.go
package model

import (
	"fmt"
	"time"
)

// Message is a board entry. It is visible on the public list only once IsApproved is set.
// Notified is true only while IsApproved is true and the approval email went out.
type Message struct {
	ID         int       `db:"id" json:"id"`
	AuthorID   int       `db:"author_id" json:"author_id"`
	Author     *User     `db:"-" json:"author,omitempty"`
	Subject    string    `db:"subject" json:"subject"`
	Content    string    `db:"content" json:"content"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	IsApproved bool      `db:"is_approved" json:"is_approved"`
	Notified   bool      `db:"notified" json:"notified"`
}

func (m *Message) String() string {
	author := ""
	if m.Author != nil {
		author = m.Author.Username
	}
	return fmt.Sprintf("Subject: %s - Author: %s", m.Subject, author)
}

// AuthorEmail is empty when the author is unknown or has no address on file.
func (m *Message) AuthorEmail() string {
	if m.Author == nil {
		return ""
	}
	return m.Author.Email
}

func (m *Message) AuthorName() string {
	if m.Author == nil {
		return ""
	}
	return m.Author.Username
}

// MessageFilter narrows the administrator changelist.
type MessageFilter struct {
	Approved *bool
	Notified *bool
	Author   string
	Search   string
}

// MessageStats is the moderation summary served to dashboards.
type MessageStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Notified int `json:"notified"`
}
