package whatsapp

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	domainMessage "github.com/AzielCF/az-crm/domains/message"
	"github.com/AzielCF/az-crm/domains/realtime"
	"github.com/AzielCF/az-crm/domains/transport"
	"github.com/AzielCF/az-crm/infrastructure/webhook"
	"github.com/AzielCF/az-crm/pkg/msgworker"
	"github.com/AzielCF/az-crm/pkg/phone"
	"github.com/sirupsen/logrus"
)

// Pipeline consumes raw transport events, persists them, enriches them
// with contact metadata and fans them out to the realtime channel and the
// webhook router. Events are processed through a per-chat sharded worker
// pool so side effects for the same chat keep arrival order.
type Pipeline struct {
	client            transport.Client
	messages          domainMessage.IMessageRepository
	identity          *IdentityResolver
	guard             *LoopGuard
	router            *webhook.Router
	realtime          realtime.Emitter
	pool              *msgworker.EventWorkerPool
	mediaDir          string
	autoDownloadMedia bool
}

func NewPipeline(
	client transport.Client,
	messages domainMessage.IMessageRepository,
	identity *IdentityResolver,
	guard *LoopGuard,
	router *webhook.Router,
	emitter realtime.Emitter,
	pool *msgworker.EventWorkerPool,
	mediaDir string,
	autoDownloadMedia bool,
) *Pipeline {
	return &Pipeline{
		client:            client,
		messages:          messages,
		identity:          identity,
		guard:             guard,
		router:            router,
		realtime:          emitter,
		pool:              pool,
		mediaDir:          mediaDir,
		autoDownloadMedia: autoDownloadMedia,
	}
}

// Handlers returns the transport callbacks wired to this pipeline.
func (p *Pipeline) Handlers() transport.EventHandlers {
	return transport.EventHandlers{
		OnMessage:       p.HandleMessage,
		OnMessageCreate: p.HandleMessageCreate,
		OnReady:         p.handleReady,
		OnQR:            p.handleQR,
		OnDisconnected:  p.handleDisconnected,
	}
}

func (p *Pipeline) handleReady(selfNumber string) {
	p.identity.ObserveReady(selfNumber)
	p.realtime.Emit(realtime.EventClientReady, map[string]any{"number": phone.Bare(selfNumber)})
}

func (p *Pipeline) handleQR(code string) {
	p.realtime.Emit(realtime.EventQRUpdate, map[string]any{"qr": code})
}

func (p *Pipeline) handleDisconnected(reason string) {
	logrus.Warnf("[PIPELINE] Transport disconnected: %s", reason)
	p.realtime.Emit(realtime.EventClientDisconnected, map[string]any{"reason": reason})
}

// HandleMessage is the inbound path: events not originated by us.
func (p *Pipeline) HandleMessage(evt transport.InboundEvent) {
	if p.identity.IsOwnMessage(evt) {
		// own events are reported through HandleMessageCreate
		return
	}
	if phone.IsBroadcast(evt.Chat) {
		return
	}

	p.pool.Dispatch(msgworker.EventJob{
		ChatID: evt.Chat,
		Handler: func(ctx context.Context) error {
			return p.processInbound(ctx, evt)
		},
	})
}

// HandleMessageCreate is the outbound-from-device path: self-originated
// events. Echoes of the CRM's own sends are dropped before anything else;
// what survives is a message sent from the paired mobile device outside
// the CRM's control, relayed as a minimal notification. Not persisted:
// sent history is recorded by the explicit send paths.
func (p *Pipeline) HandleMessageCreate(evt transport.InboundEvent) {
	if p.guard.SuppressEcho(evt.ID) {
		logrus.Debugf("[PIPELINE] Suppressed echo of own send %s", evt.ID)
		return
	}
	if phone.IsBroadcast(evt.Chat) {
		return
	}
	if evt.Origin == transport.OriginWeb {
		// the browser surface reports its sends through the explicit send path
		return
	}

	author := phone.Bare(evt.Sender)
	to := phone.Bare(evt.Chat)
	p.pool.Dispatch(msgworker.EventJob{
		ChatID: evt.Chat,
		Handler: func(ctx context.Context) error {
			p.router.Dispatch(ctx, webhook.EventMessageSentMobile, map[string]any{
				"author": author,
				"to":     to,
			})
			return nil
		},
	})
}

func (p *Pipeline) processInbound(ctx context.Context, evt transport.InboundEvent) error {
	phoneNumber := phone.Bare(evt.Sender)

	msg := &domainMessage.Message{
		MessageID: evt.ID,
		Phone:     phoneNumber,
		Body:      evt.Body,
		IsFromMe:  false,
		Type:      domainMessage.ParseType(evt.MediaKind),
		Timestamp: evt.Timestamp,
		ChatID:    evt.Chat,
	}

	// Media download is best-effort: a failure leaves the record with a
	// null media reference and never aborts persistence.
	var mediaBytes []byte
	if evt.HasMedia && p.autoDownloadMedia {
		media, err := p.client.DownloadMedia(ctx, evt)
		if err != nil {
			logrus.Warnf("[PIPELINE] Failed to download media for %s: %v", evt.ID, err)
		} else {
			mediaBytes = media.Data
			if path, err := p.saveMedia(evt.ID, media); err != nil {
				logrus.Warnf("[PIPELINE] Failed to save media for %s: %v", evt.ID, err)
			} else {
				msg.MediaPath = &path
			}
		}
	}

	// Storage failure is not fatal: the in-session chat experience and the
	// automation forward still happen.
	if err := p.messages.Append(ctx, msg); err != nil {
		logrus.WithError(err).Errorf("[PIPELINE] Failed to store message %s", evt.ID)
	}

	name := p.resolveName(ctx, phoneNumber, evt.PushName)

	p.realtime.Emit(realtime.EventNewMessage, map[string]any{
		"contact": transport.Contact{Number: phoneNumber, Name: name, PushName: evt.PushName},
		"message": msg,
	})

	payload := map[string]any{
		"phoneNumber": phoneNumber,
		"name":        name,
		"body":        msg.Body,
		"type":        string(msg.Type),
		"timestamp":   msg.Timestamp.Format(time.RFC3339),
		"chatId":      evt.Chat,
		"to":          p.identity.SelfNumber(),
	}

	// Audio payloads ride along in the webhook body so the automation can
	// transcribe them. Best-effort: a failure only omits the field.
	if msg.Type == domainMessage.TypeAudio || msg.Type == domainMessage.TypePTT {
		if mediaBytes == nil {
			media, err := p.client.DownloadMedia(ctx, evt)
			if err != nil {
				logrus.Warnf("[PIPELINE] Failed to fetch audio payload for %s: %v", evt.ID, err)
			} else {
				mediaBytes = media.Data
			}
		}
		if mediaBytes != nil {
			payload["audioData"] = base64.StdEncoding.EncodeToString(mediaBytes)
		}
	}

	p.router.Dispatch(ctx, webhook.EventMessageReceived, payload)
	return nil
}

func (p *Pipeline) resolveName(ctx context.Context, phoneNumber, pushName string) string {
	contact, err := p.client.GetContact(ctx, phoneNumber)
	if err == nil && contact.Name != "" {
		return contact.Name
	}
	if err != nil {
		logrus.Debugf("[PIPELINE] Contact lookup failed for %s: %v", phoneNumber, err)
	}
	if pushName != "" {
		return pushName
	}
	return phoneNumber
}

func (p *Pipeline) saveMedia(id string, media transport.Media) (string, error) {
	if err := os.MkdirAll(p.mediaDir, 0755); err != nil {
		return "", err
	}
	name := id
	if media.FileName != "" {
		name = fmt.Sprintf("%s-%s", id, filepath.Base(media.FileName))
	}
	path := filepath.Join(p.mediaDir, name)
	if err := os.WriteFile(path, media.Data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
