package message

import (
	"context"
	"time"
)

// Type is the fixed enumeration of message type tags.
type Type string

const (
	TypeText                 Type = "text"
	TypeImage                Type = "image"
	TypeAudio                Type = "audio"
	TypeDocument             Type = "document"
	TypeVideo                Type = "video"
	TypePTT                  Type = "ptt"
	TypeLocation             Type = "location"
	TypeVCard                Type = "vcard"
	TypeMultiVCard           Type = "multi_vcard"
	TypeRevoked              Type = "revoked"
	TypeOrder                Type = "order"
	TypeUnknown              Type = "unknown"
	TypeNotificationTemplate Type = "notification_template"
)

// ParseType maps a transport media/type tag onto the enumeration,
// falling back to unknown for tags the CRM does not model.
func ParseType(tag string) Type {
	switch Type(tag) {
	case TypeText, TypeImage, TypeAudio, TypeDocument, TypeVideo, TypePTT,
		TypeLocation, TypeVCard, TypeMultiVCard, TypeRevoked, TypeOrder,
		TypeNotificationTemplate:
		return Type(tag)
	case "chat", "":
		return TypeText
	case "sticker":
		return TypeImage
	default:
		return TypeUnknown
	}
}

// Message is the persisted record of one observed event. Records are
// created once and never mutated; per phone number they form an
// append-only log.
type Message struct {
	ID               uint      `json:"-" gorm:"primaryKey"`
	MessageID        string    `json:"message_id" gorm:"uniqueIndex;size:128"`
	Phone            string    `json:"phone" gorm:"index;size:32"`
	Body             string    `json:"body"`
	MediaPath        *string   `json:"media_path"`
	IsFromMe         bool      `json:"is_from_me"`
	Type             Type      `json:"type" gorm:"size:32"`
	Timestamp        time.Time `json:"timestamp"`
	ChatID           string    `json:"chat_id" gorm:"index;size:128"`
	FromAutomation   bool      `json:"from_automation"`
	AutomationSource *string   `json:"automation_source"`
	CreatedAt        time.Time `json:"created_at"`
}

// IMessageRepository is the Store capability for the message log.
type IMessageRepository interface {
	Append(ctx context.Context, msg *Message) error
	GetByMessageID(ctx context.Context, messageID string) (*Message, error)
	ListByPhone(ctx context.Context, phone string, limit int) ([]Message, error)
}
