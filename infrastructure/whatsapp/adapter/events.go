package adapter

import (
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
)

// classify maps a raw proto message onto the CRM's type tags and reports
// whether it carries downloadable media.
func classify(msg *waE2E.Message) (kind string, hasMedia bool) {
	switch {
	case msg == nil:
		return "unknown", false
	case msg.GetImageMessage() != nil:
		return "image", true
	case msg.GetAudioMessage() != nil:
		if msg.GetAudioMessage().GetPTT() {
			return "ptt", true
		}
		return "audio", true
	case msg.GetVideoMessage() != nil:
		return "video", true
	case msg.GetDocumentMessage() != nil:
		return "document", true
	case msg.GetStickerMessage() != nil:
		return "sticker", true
	case msg.GetLocationMessage() != nil, msg.GetLiveLocationMessage() != nil:
		return "location", false
	case msg.GetContactMessage() != nil:
		return "vcard", false
	case msg.GetContactsArrayMessage() != nil:
		return "multi_vcard", false
	case msg.GetOrderMessage() != nil:
		return "order", false
	case msg.GetTemplateMessage() != nil:
		return "notification_template", false
	case msg.GetProtocolMessage() != nil && msg.GetProtocolMessage().GetType().String() == "REVOKE":
		return "revoked", false
	case msg.GetConversation() != "", msg.GetExtendedTextMessage() != nil:
		return "text", false
	default:
		return "unknown", false
	}
}

func mediaCaption(msg *waE2E.Message) string {
	switch {
	case msg.GetImageMessage() != nil:
		return msg.GetImageMessage().GetCaption()
	case msg.GetVideoMessage() != nil:
		return msg.GetVideoMessage().GetCaption()
	case msg.GetDocumentMessage() != nil:
		return msg.GetDocumentMessage().GetCaption()
	default:
		return ""
	}
}

// downloadableFrom extracts the downloadable section plus mime/file hints.
func downloadableFrom(msg *waE2E.Message) (whatsmeow.DownloadableMessage, string, string) {
	switch {
	case msg.GetImageMessage() != nil:
		m := msg.GetImageMessage()
		return m, m.GetMimetype(), ""
	case msg.GetAudioMessage() != nil:
		m := msg.GetAudioMessage()
		return m, m.GetMimetype(), ""
	case msg.GetVideoMessage() != nil:
		m := msg.GetVideoMessage()
		return m, m.GetMimetype(), ""
	case msg.GetDocumentMessage() != nil:
		m := msg.GetDocumentMessage()
		return m, m.GetMimetype(), m.GetFileName()
	case msg.GetStickerMessage() != nil:
		m := msg.GetStickerMessage()
		return m, m.GetMimetype(), ""
	default:
		return nil, "", ""
	}
}
