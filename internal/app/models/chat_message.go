package models

import "time"

// MaxMessageLength is the default upper bound on chat message content
const MaxMessageLength = 2000

// Message is a direct chat message between a student and their mentor.
// Only Read ever changes after creation.
type Message struct {
	ID         int64     `json:"id" db:"id"`
	SenderID   int64     `json:"senderId" db:"sender_id"`
	ReceiverID int64     `json:"receiverId" db:"receiver_id"`
	Content    string    `json:"content" db:"content"`
	Read       bool      `json:"read" db:"read"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}
