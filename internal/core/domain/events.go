package domain

import "time"

type Collection string

const (
	CollectionUsers   Collection = "users"
	CollectionCourses Collection = "courses"
)

type ChangeOp string

const (
	OpInsert ChangeOp = "insert"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
)

// ChangeEvent is published after a successful write to a watched collection.
type ChangeEvent struct {
	Collection Collection `json:"collection"`
	Op         ChangeOp   `json:"op"`
	DocumentID string     `json:"document_id"`
	InstanceID string     `json:"instance_id,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Mail is an outbound plain-text message.
type Mail struct {
	To      []string
	ReplyTo string
	Subject string
	Body    string
}
