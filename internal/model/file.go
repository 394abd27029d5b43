package model

import "time"

// File records that an uploaded document was folded into the session's vector
// index. The content itself lives on disk under the session's upload folder.
type File struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:36;not null;index" json:"session_id"`
	Filename  string    `gorm:"size:255;not null" json:"filename"`
	CreatedAt time.Time `json:"created_at"`
}
