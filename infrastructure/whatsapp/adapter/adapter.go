package adapter

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/AzielCF/az-crm/domains/transport"
	pkgError "github.com/AzielCF/az-crm/pkg/error"
	"github.com/sirupsen/logrus"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

// maxRetainedEvents bounds the cache of raw events kept for later media
// download requests.
const maxRetainedEvents = 512

// WhatsAppAdapter implements the transport.Client capability over a
// whatsmeow client and translates whatsmeow push events into the
// domain-level callbacks the pipeline consumes.
type WhatsAppAdapter struct {
	cli *whatsmeow.Client

	handlersMu sync.RWMutex
	handlers   transport.EventHandlers

	// raw events retained for DownloadMedia, FIFO-capped
	rawMu    sync.Mutex
	rawByID  map[string]*events.Message
	rawOrder []string
}

func NewAdapter(cli *whatsmeow.Client) *WhatsAppAdapter {
	a := &WhatsAppAdapter{
		cli:     cli,
		rawByID: make(map[string]*events.Message),
	}
	cli.AddEventHandler(a.handleEvent)
	return a
}

// Bind installs the pipeline callbacks. Safe to call before Connect.
func (a *WhatsAppAdapter) Bind(handlers transport.EventHandlers) {
	a.handlersMu.Lock()
	a.handlers = handlers
	a.handlersMu.Unlock()
}

func (a *WhatsAppAdapter) currentHandlers() transport.EventHandlers {
	a.handlersMu.RLock()
	defer a.handlersMu.RUnlock()
	return a.handlers
}

func (a *WhatsAppAdapter) SendText(ctx context.Context, number string, body string) (string, error) {
	jid := userJID(number)
	resp, err := a.cli.SendMessage(ctx, jid, &waE2E.Message{Conversation: proto.String(body)})
	if err != nil {
		return "", pkgError.InternalServerError(fmt.Sprintf("failed to send text to %s: %v", number, err))
	}
	return resp.ID, nil
}

func (a *WhatsAppAdapter) SendMedia(ctx context.Context, number string, media transport.Media, caption string) (string, error) {
	jid := userJID(number)

	mediaType := whatsmeow.MediaDocument
	switch {
	case strings.HasPrefix(media.MimeType, "image/"):
		mediaType = whatsmeow.MediaImage
	case strings.HasPrefix(media.MimeType, "video/"):
		mediaType = whatsmeow.MediaVideo
	case strings.HasPrefix(media.MimeType, "audio/"):
		mediaType = whatsmeow.MediaAudio
	}

	up, err := a.cli.Upload(ctx, media.Data, mediaType)
	if err != nil {
		return "", pkgError.InternalServerError(fmt.Sprintf("failed to upload media: %v", err))
	}

	var msg *waE2E.Message
	switch mediaType {
	case whatsmeow.MediaImage:
		msg = &waE2E.Message{ImageMessage: &waE2E.ImageMessage{
			URL: &up.URL, DirectPath: &up.DirectPath, MediaKey: up.MediaKey,
			FileEncSHA256: up.FileEncSHA256, FileSHA256: up.FileSHA256, FileLength: &up.FileLength,
			Mimetype: proto.String(media.MimeType), Caption: proto.String(caption),
		}}
	case whatsmeow.MediaVideo:
		msg = &waE2E.Message{VideoMessage: &waE2E.VideoMessage{
			URL: &up.URL, DirectPath: &up.DirectPath, MediaKey: up.MediaKey,
			FileEncSHA256: up.FileEncSHA256, FileSHA256: up.FileSHA256, FileLength: &up.FileLength,
			Mimetype: proto.String(media.MimeType), Caption: proto.String(caption),
		}}
	case whatsmeow.MediaAudio:
		msg = &waE2E.Message{AudioMessage: &waE2E.AudioMessage{
			URL: &up.URL, DirectPath: &up.DirectPath, MediaKey: up.MediaKey,
			FileEncSHA256: up.FileEncSHA256, FileSHA256: up.FileSHA256, FileLength: &up.FileLength,
			Mimetype: proto.String(media.MimeType),
		}}
	default:
		msg = &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{
			URL: &up.URL, DirectPath: &up.DirectPath, MediaKey: up.MediaKey,
			FileEncSHA256: up.FileEncSHA256, FileSHA256: up.FileSHA256, FileLength: &up.FileLength,
			Mimetype: proto.String(media.MimeType), FileName: proto.String(media.FileName),
			Caption: proto.String(caption),
		}}
	}

	resp, err := a.cli.SendMessage(ctx, jid, msg)
	if err != nil {
		return "", pkgError.InternalServerError(fmt.Sprintf("failed to send media to %s: %v", number, err))
	}
	return resp.ID, nil
}

func (a *WhatsAppAdapter) ResolveNumber(ctx context.Context, number string) (bool, error) {
	resp, err := a.cli.IsOnWhatsApp(ctx, []string{"+" + number})
	if err != nil {
		return false, err
	}
	if len(resp) == 0 {
		return false, nil
	}
	return resp[0].IsIn, nil
}

func (a *WhatsAppAdapter) GetContact(ctx context.Context, number string) (transport.Contact, error) {
	info, err := a.cli.Store.Contacts.GetContact(ctx, userJID(number))
	if err != nil {
		return transport.Contact{}, err
	}
	contact := transport.Contact{Number: number, PushName: info.PushName}
	if info.FullName != "" {
		contact.Name = info.FullName
	} else if info.FirstName != "" {
		contact.Name = info.FirstName
	}
	return contact, nil
}

func (a *WhatsAppAdapter) DownloadMedia(ctx context.Context, evt transport.InboundEvent) (transport.Media, error) {
	raw := a.takeRaw(evt.ID)
	if raw == nil {
		return transport.Media{}, pkgError.NotFoundError(fmt.Sprintf("no downloadable media retained for %s", evt.ID))
	}

	downloadable, mimeType, fileName := downloadableFrom(raw.Message)
	if downloadable == nil {
		return transport.Media{}, pkgError.NotFoundError(fmt.Sprintf("event %s carries no media", evt.ID))
	}

	data, err := a.cli.Download(ctx, downloadable)
	if err != nil {
		return transport.Media{}, err
	}
	return transport.Media{Data: data, MimeType: mimeType, FileName: fileName}, nil
}

func (a *WhatsAppAdapter) retainRaw(evt *events.Message) {
	a.rawMu.Lock()
	defer a.rawMu.Unlock()
	id := evt.Info.ID
	if _, ok := a.rawByID[id]; ok {
		return
	}
	a.rawByID[id] = evt
	a.rawOrder = append(a.rawOrder, id)
	for len(a.rawOrder) > maxRetainedEvents {
		oldest := a.rawOrder[0]
		a.rawOrder = a.rawOrder[1:]
		delete(a.rawByID, oldest)
	}
}

// takeRaw returns the retained event without removing it; repeated
// downloads of the same event (persistence + audio payload) are allowed.
func (a *WhatsAppAdapter) takeRaw(id string) *events.Message {
	a.rawMu.Lock()
	defer a.rawMu.Unlock()
	return a.rawByID[id]
}

func (a *WhatsAppAdapter) handleEvent(rawEvt any) {
	handlers := a.currentHandlers()

	switch evt := rawEvt.(type) {
	case *events.Message:
		a.dispatchMessage(handlers, evt)
	case *events.Connected:
		if handlers.OnReady != nil && a.cli.Store.ID != nil {
			handlers.OnReady(a.cli.Store.ID.User)
		}
	case *events.PairSuccess:
		logrus.Infof("[TRANSPORT] Paired with %s", evt.ID.String())
	case *events.QR:
		if handlers.OnQR != nil && len(evt.Codes) > 0 {
			handlers.OnQR(evt.Codes[0])
		}
	case *events.Disconnected:
		if handlers.OnDisconnected != nil {
			handlers.OnDisconnected("stream closed")
		}
	case *events.LoggedOut:
		if handlers.OnDisconnected != nil {
			handlers.OnDisconnected(fmt.Sprintf("logged out: %s", evt.Reason))
		}
	}
}

func (a *WhatsAppAdapter) dispatchMessage(handlers transport.EventHandlers, evt *events.Message) {
	inbound := a.translate(evt)
	if inbound.HasMedia {
		a.retainRaw(evt)
	}

	if inbound.FromMe {
		if handlers.OnMessageCreate != nil {
			handlers.OnMessageCreate(inbound)
		}
		return
	}
	if handlers.OnMessage != nil {
		handlers.OnMessage(inbound)
	}
}

func (a *WhatsAppAdapter) translate(evt *events.Message) transport.InboundEvent {
	msg := evt.Message
	body := msg.GetConversation()
	if body == "" {
		if ext := msg.GetExtendedTextMessage(); ext != nil {
			body = ext.GetText()
		}
	}

	kind, hasMedia := classify(msg)
	if caption := mediaCaption(msg); body == "" && caption != "" {
		body = caption
	}

	origin := transport.OriginUnknown
	if evt.Info.IsFromMe {
		// companion web surface tags its sends with device-sent metadata
		if evt.Info.DeviceSentMeta != nil {
			origin = transport.OriginWeb
		} else {
			origin = transport.OriginMobile
		}
	}

	author := ""
	if evt.Info.Chat.Server == types.GroupServer {
		author = evt.Info.Sender.String()
	}

	return transport.InboundEvent{
		ID:        evt.Info.ID,
		Sender:    evt.Info.Sender.String(),
		Chat:      evt.Info.Chat.String(),
		Author:    author,
		Body:      body,
		FromMe:    evt.Info.IsFromMe,
		HasMedia:  hasMedia,
		MediaKind: kind,
		Origin:    origin,
		PushName:  evt.Info.PushName,
		Timestamp: evt.Info.Timestamp,
	}
}

func userJID(number string) types.JID {
	return types.NewJID(number, types.DefaultUserServer)
}
