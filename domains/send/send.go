package send

import "context"

type TextRequest struct {
	Phone string `json:"phone" form:"phone"`
	Body  string `json:"body" form:"body"`
}

type MediaRequest struct {
	Phone     string `json:"phone" form:"phone"`
	MediaPath string `json:"media_path" form:"media_path"`
	MimeType  string `json:"mime_type" form:"mime_type"`
	Caption   string `json:"caption" form:"caption"`
}

// AutomationRequest is what the automation endpoint posts back when it
// wants the CRM to deliver a reply. Source identifies the workflow that
// produced it and is stored with the message.
type AutomationRequest struct {
	Phone  string `json:"phone"`
	Body   string `json:"body"`
	Source string `json:"source"`
}

type Response struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

// ISendUsecase is the CRM's explicit send surface. Both paths are
// responsible for flagging their sends so the ingestion pipeline does not
// re-process the transport echo.
type ISendUsecase interface {
	SendText(ctx context.Context, req TextRequest) (Response, error)
	SendMedia(ctx context.Context, req MediaRequest) (Response, error)
	SendFromAutomation(ctx context.Context, req AutomationRequest) (Response, error)
}
