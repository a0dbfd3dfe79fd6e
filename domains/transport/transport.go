package transport

import (
	"context"
	"time"
)

// DeviceOrigin tags which surface produced a self-originated event.
type DeviceOrigin string

const (
	OriginWeb     DeviceOrigin = "web"
	OriginMobile  DeviceOrigin = "mobile"
	OriginUnknown DeviceOrigin = "unknown"
)

// InboundEvent is a raw transport event. It is transient; the pipeline
// derives a message.Message from it and never stores it as-is.
type InboundEvent struct {
	ID        string
	Sender    string // raw identifier, may carry chat-type/device suffixes
	Chat      string
	Author    string // group author, empty outside group chats
	Body      string
	FromMe    bool
	HasMedia  bool
	MediaKind string // image, audio, video, document, ptt, sticker...
	Origin    DeviceOrigin
	PushName  string
	Timestamp time.Time
}

type Contact struct {
	Number   string `json:"number"`
	Name     string `json:"name"`
	PushName string `json:"pushname"`
}

type Media struct {
	Data     []byte
	MimeType string
	FileName string
}

// Client is the messaging transport capability the pipeline consumes.
// Implementations live under infrastructure; everything above it depends
// only on this interface.
type Client interface {
	SendText(ctx context.Context, number string, body string) (messageID string, err error)
	SendMedia(ctx context.Context, number string, media Media, caption string) (messageID string, err error)
	ResolveNumber(ctx context.Context, number string) (bool, error)
	GetContact(ctx context.Context, number string) (Contact, error)
	DownloadMedia(ctx context.Context, evt InboundEvent) (Media, error)
}

// EventHandlers receives transport push callbacks. Any handler may be nil.
type EventHandlers struct {
	OnMessage       func(evt InboundEvent) // events not originated by us
	OnMessageCreate func(evt InboundEvent) // self-originated events
	OnReady         func(selfNumber string)
	OnQR            func(code string)
	OnDisconnected  func(reason string)
}
