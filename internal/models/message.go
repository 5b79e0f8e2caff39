package models

import (
	"time"

	"gorm.io/gorm"
)

/** --------------------ENTITIES-------------------- */
// Message is one chat message relayed through a conversation room.
// The relay stamps the id and timestamp server-side before persisting.
type Message struct {
	ID         string         `gorm:"primaryKey;type:uuid" json:"id"`
	RoomID     string         `gorm:"not null;index" json:"roomId"`
	SenderID   string         `gorm:"not null" json:"senderId"`
	ReceiverID string         `gorm:"nullable" json:"receiverId,omitempty"`
	ListingID  *string        `json:"listingId,omitempty"` // conversation about a specific listing
	Content    string         `gorm:"not null" json:"content"`
	Read       bool           `gorm:"default:false" json:"read"`
	CreatedAt  time.Time      `json:"createdAt"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

/** -------------------- DTOs -------------------- */
// Response
type MessageResponse struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"roomId"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId,omitempty"`
	ListingID  *string   `json:"listingId,omitempty"`
	Content    string    `json:"content"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (m *Message) ToResponse() *MessageResponse {
	return &MessageResponse{
		ID:         m.ID,
		RoomID:     m.RoomID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		ListingID:  m.ListingID,
		Content:    m.Content,
		Read:       m.Read,
		CreatedAt:  m.CreatedAt,
	}
}
