package campaign

import "context"

// Phase of the singleton campaign state machine.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseValidating Phase = "validating"
	PhaseSending    Phase = "sending"
)

// MessageKind selects what is sent to each validated number.
type MessageKind string

const (
	KindText     MessageKind = "text"
	KindMedia    MessageKind = "media"
	KindTemplate MessageKind = "template"
)

// MessageSpec describes the campaign content. For KindMedia, MediaPath
// points to a file already present on disk (uploads are handled upstream).
type MessageSpec struct {
	Kind      MessageKind `json:"kind"`
	Body      string      `json:"body"`
	MediaPath string      `json:"media_path"`
	MimeType  string      `json:"mime_type"`
	Caption   string      `json:"caption"`
}

// Progress counters for one run. Counters only grow; a cancelled run keeps
// whatever it reached.
type Progress struct {
	Total          int      `json:"total"`
	Validated      int      `json:"validated"`
	Sent           int      `json:"sent"`
	Failed         int      `json:"failed"`
	InvalidNumbers []string `json:"invalid_numbers"`
}

// Snapshot is a point-in-time copy of the controller state.
type Snapshot struct {
	DispatchID string   `json:"dispatch_id"`
	Phase      Phase    `json:"phase"`
	Cancelled  bool     `json:"cancelled"`
	Progress   Progress `json:"progress"`
}

type StartRequest struct {
	Numbers []string    `json:"numbers"`
	Message MessageSpec `json:"message"`
}

// ICampaignUsecase drives the singleton bulk-dispatch campaign.
type ICampaignUsecase interface {
	// Start rejects with pkg/error.AlreadyRunningError while a run is active.
	Start(ctx context.Context, numbers []string, spec MessageSpec) (dispatchID string, err error)
	// RequestStop is a no-op (returns false) for a finished or mismatched run.
	RequestStop(dispatchID string) bool
	Snapshot() Snapshot
}
