package realtime

// Event codes pushed to connected browser sessions.
const (
	EventNewMessage         = "NEW_MESSAGE"
	EventCampaignProgress   = "CAMPAIGN_PROGRESS"
	EventClientReady        = "CLIENT_READY"
	EventClientDisconnected = "CLIENT_DISCONNECTED"
	EventQRUpdate           = "QR_UPDATE"
	EventMessageSent        = "MESSAGE_SENT"
)

// Emitter is the push-notification capability toward the UI. Emit must
// never block the caller beyond a channel hand-off.
type Emitter interface {
	Emit(event string, payload any)
}
