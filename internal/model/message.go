package model

import "time"

// Sender values stored on Message rows.
const (
	SenderUser = "user"
	SenderLLM  = "llm"
)

// Message is immutable once created; rows are only removed by the session
// cascade. Insertion order doubles as chat order.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:36;not null;index" json:"session_id"`
	Sender    string    `gorm:"size:16;not null" json:"sender"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
