package usecase

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	domainMessage "github.com/AzielCF/az-crm/domains/message"
	"github.com/AzielCF/az-crm/domains/realtime"
	domainSend "github.com/AzielCF/az-crm/domains/send"
	"github.com/AzielCF/az-crm/domains/transport"
	"github.com/AzielCF/az-crm/infrastructure/webhook"
	"github.com/AzielCF/az-crm/infrastructure/whatsapp"
	pkgError "github.com/AzielCF/az-crm/pkg/error"
	"github.com/AzielCF/az-crm/pkg/phone"
	"github.com/AzielCF/az-crm/validations"
	"github.com/sirupsen/logrus"
)

type serviceSend struct {
	client   transport.Client
	messages domainMessage.IMessageRepository
	guard    *whatsapp.LoopGuard
	router   *webhook.Router
	realtime realtime.Emitter
}

func NewSendService(
	client transport.Client,
	messages domainMessage.IMessageRepository,
	guard *whatsapp.LoopGuard,
	router *webhook.Router,
	emitter realtime.Emitter,
) domainSend.ISendUsecase {
	return &serviceSend{
		client:   client,
		messages: messages,
		guard:    guard,
		router:   router,
		realtime: emitter,
	}
}

// SendText is the UI chat-surface path. The loop guard is armed for the
// whole operation and the resulting message ID registered, so the
// transport echo of this send is dropped instead of re-ingested.
func (service *serviceSend) SendText(ctx context.Context, req domainSend.TextRequest) (domainSend.Response, error) {
	if err := validations.ValidateSendText(ctx, req); err != nil {
		return domainSend.Response{}, err
	}

	number := phone.Bare(req.Phone)

	service.guard.BeginUISend()
	defer service.guard.EndUISend()

	messageID, err := service.client.SendText(ctx, number, req.Body)
	if err != nil {
		logrus.WithError(err).WithField("phone", number).Error("[SEND] Failed to send text")
		return domainSend.Response{}, err
	}
	service.guard.MarkUISend(messageID)

	service.recordSent(ctx, messageID, number, req.Body, domainMessage.TypeText, nil, false, "")
	service.announceSent(ctx, messageID, number, req.Body, domainMessage.TypeText)

	return domainSend.Response{MessageID: messageID, Status: "sent"}, nil
}

// SendMedia sends a file already present on disk. Uploads happen upstream;
// here the path is read and shipped.
func (service *serviceSend) SendMedia(ctx context.Context, req domainSend.MediaRequest) (domainSend.Response, error) {
	if err := validations.ValidateSendMedia(ctx, req); err != nil {
		return domainSend.Response{}, err
	}

	data, err := os.ReadFile(req.MediaPath)
	if err != nil {
		return domainSend.Response{}, pkgError.ValidationError(fmt.Sprintf("media_path: cannot read file: %v", err))
	}

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(req.MediaPath))
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	number := phone.Bare(req.Phone)

	service.guard.BeginUISend()
	defer service.guard.EndUISend()

	media := transport.Media{
		Data:     data,
		MimeType: mimeType,
		FileName: filepath.Base(req.MediaPath),
	}
	messageID, err := service.client.SendMedia(ctx, number, media, req.Caption)
	if err != nil {
		logrus.WithError(err).WithField("phone", number).Error("[SEND] Failed to send media")
		return domainSend.Response{}, err
	}
	service.guard.MarkUISend(messageID)

	mediaPath := req.MediaPath
	msgType := typeForMime(mimeType)
	service.recordSent(ctx, messageID, number, req.Caption, msgType, &mediaPath, false, "")
	service.announceSent(ctx, messageID, number, req.Caption, msgType)

	return domainSend.Response{MessageID: messageID, Status: "sent"}, nil
}

// SendFromAutomation delivers a reply produced by the automation endpoint.
// The automation flag stays armed for the duration of the send so the echo
// is suppressed without registering it as a UI send.
func (service *serviceSend) SendFromAutomation(ctx context.Context, req domainSend.AutomationRequest) (domainSend.Response, error) {
	if err := validations.ValidateAutomationSend(ctx, req); err != nil {
		return domainSend.Response{}, err
	}

	number := phone.Bare(req.Phone)

	service.guard.BeginAutomationSend()
	defer service.guard.EndAutomationSend()

	messageID, err := service.client.SendText(ctx, number, req.Body)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"phone":  number,
			"source": req.Source,
		}).Error("[SEND] Automation send failed")
		return domainSend.Response{}, err
	}

	service.recordSent(ctx, messageID, number, req.Body, domainMessage.TypeText, nil, true, req.Source)

	service.realtime.Emit(realtime.EventMessageSent, map[string]any{
		"message_id": messageID,
		"phone":      number,
		"body":       req.Body,
		"automation": true,
		"source":     req.Source,
	})

	return domainSend.Response{MessageID: messageID, Status: "sent"}, nil
}

func (service *serviceSend) recordSent(
	ctx context.Context,
	messageID, number, body string,
	msgType domainMessage.Type,
	mediaPath *string,
	fromAutomation bool,
	source string,
) {
	msg := &domainMessage.Message{
		MessageID:      messageID,
		Phone:          number,
		Body:           body,
		MediaPath:      mediaPath,
		IsFromMe:       true,
		Type:           msgType,
		Timestamp:      time.Now(),
		ChatID:         fmt.Sprintf("%s@s.whatsapp.net", number),
		FromAutomation: fromAutomation,
	}
	if fromAutomation && source != "" {
		msg.AutomationSource = &source
	}
	// Storage failure never fails the send: the message already left.
	if err := service.messages.Append(ctx, msg); err != nil {
		logrus.WithError(err).Errorf("[SEND] Failed to store sent message %s", messageID)
	}
}

func (service *serviceSend) announceSent(ctx context.Context, messageID, number, body string, msgType domainMessage.Type) {
	service.realtime.Emit(realtime.EventMessageSent, map[string]any{
		"message_id": messageID,
		"phone":      number,
		"body":       body,
		"type":       string(msgType),
	})

	service.router.Dispatch(ctx, webhook.EventMessageSentConfirmation, map[string]any{
		"messageId":   messageID,
		"phoneNumber": number,
		"body":        body,
		"type":        string(msgType),
		"timestamp":   time.Now().Format(time.RFC3339),
	})
}

func typeForMime(mimeType string) domainMessage.Type {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return domainMessage.TypeImage
	case strings.HasPrefix(mimeType, "video/"):
		return domainMessage.TypeVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return domainMessage.TypeAudio
	default:
		return domainMessage.TypeDocument
	}
}
