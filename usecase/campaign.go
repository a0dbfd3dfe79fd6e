package usecase

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"time"

	domainCampaign "github.com/AzielCF/az-crm/domains/campaign"
	domainIntegration "github.com/AzielCF/az-crm/domains/integration"
	"github.com/AzielCF/az-crm/domains/realtime"
	"github.com/AzielCF/az-crm/domains/transport"
	pkgError "github.com/AzielCF/az-crm/pkg/error"
	"github.com/AzielCF/az-crm/pkg/phone"
	"github.com/AzielCF/az-crm/validations"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// serviceCampaign is the singleton bulk-dispatch controller. At most one
// run is active per process; a second Start while a run is active is
// rejected, never queued.
type serviceCampaign struct {
	client         transport.Client
	integration    *domainIntegration.Cache
	realtime       realtime.Emitter
	interSendDelay time.Duration

	mu          sync.Mutex
	phase       domainCampaign.Phase
	dispatchID  string
	cancelled   bool
	progress    domainCampaign.Progress
	sentNumbers map[string]struct{}

	// sleepFn is swappable in tests
	sleepFn func(time.Duration)
}

func NewCampaignService(
	client transport.Client,
	integrationCache *domainIntegration.Cache,
	emitter realtime.Emitter,
	interSendDelay time.Duration,
) domainCampaign.ICampaignUsecase {
	if interSendDelay <= 0 {
		interSendDelay = 1200 * time.Millisecond
	}
	return &serviceCampaign{
		client:         client,
		integration:    integrationCache,
		realtime:       emitter,
		interSendDelay: interSendDelay,
		phase:          domainCampaign.PhaseIdle,
		sentNumbers:    make(map[string]struct{}),
		sleepFn:        time.Sleep,
	}
}

// Start claims the controller and launches the run in the background.
func (service *serviceCampaign) Start(ctx context.Context, numbers []string, spec domainCampaign.MessageSpec) (string, error) {
	if err := validations.ValidateCampaignStart(ctx, domainCampaign.StartRequest{Numbers: numbers, Message: spec}); err != nil {
		return "", err
	}

	service.mu.Lock()
	if service.phase != domainCampaign.PhaseIdle {
		service.mu.Unlock()
		return "", pkgError.AlreadyRunningError(fmt.Sprintf("campaign %s is still %s", service.dispatchID, service.phase))
	}

	dispatchID := uuid.NewString()
	service.dispatchID = dispatchID
	service.phase = domainCampaign.PhaseValidating
	service.cancelled = false
	service.progress = domainCampaign.Progress{Total: len(numbers)}
	service.sentNumbers = make(map[string]struct{})
	service.mu.Unlock()

	logrus.Infof("[CAMPAIGN] Dispatch %s started for %s numbers", dispatchID, humanize.Comma(int64(len(numbers))))

	go service.run(numbers, spec)

	return dispatchID, nil
}

// RequestStop flags the active run for cooperative cancellation. A
// finished or mismatched dispatch ID is a no-op.
func (service *serviceCampaign) RequestStop(dispatchID string) bool {
	service.mu.Lock()
	defer service.mu.Unlock()
	if service.phase == domainCampaign.PhaseIdle || service.dispatchID != dispatchID {
		return false
	}
	service.cancelled = true
	logrus.Infof("[CAMPAIGN] Stop requested for dispatch %s", dispatchID)
	return true
}

func (service *serviceCampaign) Snapshot() domainCampaign.Snapshot {
	service.mu.Lock()
	defer service.mu.Unlock()
	progress := service.progress
	progress.InvalidNumbers = append([]string(nil), service.progress.InvalidNumbers...)
	return domainCampaign.Snapshot{
		DispatchID: service.dispatchID,
		Phase:      service.phase,
		Cancelled:  service.cancelled,
		Progress:   progress,
	}
}

func (service *serviceCampaign) run(numbers []string, spec domainCampaign.MessageSpec) {
	ctx := context.Background()

	valid := service.validatePhase(ctx, numbers)

	// a run cancelled during validation never enters the sending phase
	service.mu.Lock()
	cancelled := service.cancelled
	if !cancelled {
		service.phase = domainCampaign.PhaseSending
	}
	service.mu.Unlock()

	if !cancelled {
		service.sendPhase(ctx, valid, spec)
	}

	service.mu.Lock()
	service.phase = domainCampaign.PhaseIdle
	progress := service.progress
	dispatchID := service.dispatchID
	cancelled = service.cancelled
	service.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"dispatch_id": dispatchID,
		"sent":        humanize.Comma(int64(progress.Sent)),
		"failed":      humanize.Comma(int64(progress.Failed)),
		"cancelled":   cancelled,
	}).Info("[CAMPAIGN] Dispatch finished")

	service.emitProgress(dispatchID, domainCampaign.PhaseIdle, cancelled, progress)
}

// validatePhase resolves every number against the transport unless the
// bypass switch is set, in which case all numbers pass untouched.
func (service *serviceCampaign) validatePhase(ctx context.Context, numbers []string) []string {
	bypass := service.integration.Get().MassDispatchBypass
	valid := make([]string, 0, len(numbers))

	for _, raw := range numbers {
		if service.shouldStop() {
			return valid
		}

		number := phone.Bare(raw)
		if number == "" {
			service.recordInvalid(raw)
			continue
		}

		if bypass {
			valid = append(valid, number)
			service.recordValidated()
			continue
		}

		exists, err := service.client.ResolveNumber(ctx, number)
		if err != nil {
			logrus.Warnf("[CAMPAIGN] Number resolution failed for %s: %v", number, err)
			service.recordInvalid(number)
			continue
		}
		if !exists {
			service.recordInvalid(number)
			continue
		}
		valid = append(valid, number)
		service.recordValidated()
	}
	return valid
}

func (service *serviceCampaign) sendPhase(ctx context.Context, numbers []string, spec domainCampaign.MessageSpec) {
	var media transport.Media
	if spec.Kind == domainCampaign.KindMedia {
		data, err := os.ReadFile(spec.MediaPath)
		if err != nil {
			logrus.Errorf("[CAMPAIGN] Cannot read campaign media %s: %v", spec.MediaPath, err)
			service.mu.Lock()
			service.progress.Failed += len(numbers)
			service.mu.Unlock()
			return
		}
		mimeType := spec.MimeType
		if mimeType == "" {
			mimeType = mime.TypeByExtension(filepath.Ext(spec.MediaPath))
		}
		media = transport.Media{Data: data, MimeType: mimeType, FileName: filepath.Base(spec.MediaPath)}
	}

	for i, number := range numbers {
		if service.shouldStop() {
			return
		}

		// re-entry safety: a number already delivered in this run is skipped
		service.mu.Lock()
		_, already := service.sentNumbers[number]
		service.mu.Unlock()
		if already {
			continue
		}

		var err error
		switch spec.Kind {
		case domainCampaign.KindMedia:
			_, err = service.client.SendMedia(ctx, number, media, spec.Caption)
		case domainCampaign.KindTemplate:
			// templates render upstream; the body arrives final
			_, err = service.client.SendText(ctx, number, spec.Body)
		default:
			_, err = service.client.SendText(ctx, number, spec.Body)
		}

		service.mu.Lock()
		if err != nil {
			service.progress.Failed++
		} else {
			service.progress.Sent++
			service.sentNumbers[number] = struct{}{}
		}
		dispatchID := service.dispatchID
		cancelled := service.cancelled
		progress := service.progress
		service.mu.Unlock()

		if err != nil {
			logrus.Warnf("[CAMPAIGN] Send to %s failed: %v", number, err)
		}

		service.emitProgress(dispatchID, domainCampaign.PhaseSending, cancelled, progress)

		if i < len(numbers)-1 {
			service.sleepFn(service.interSendDelay)
		}
	}
}

func (service *serviceCampaign) shouldStop() bool {
	service.mu.Lock()
	defer service.mu.Unlock()
	return service.cancelled
}

func (service *serviceCampaign) recordValidated() {
	service.mu.Lock()
	service.progress.Validated++
	dispatchID := service.dispatchID
	cancelled := service.cancelled
	progress := service.progress
	service.mu.Unlock()
	service.emitProgress(dispatchID, domainCampaign.PhaseValidating, cancelled, progress)
}

func (service *serviceCampaign) recordInvalid(number string) {
	service.mu.Lock()
	service.progress.Failed++
	service.progress.InvalidNumbers = append(service.progress.InvalidNumbers, number)
	dispatchID := service.dispatchID
	cancelled := service.cancelled
	progress := service.progress
	service.mu.Unlock()
	service.emitProgress(dispatchID, domainCampaign.PhaseValidating, cancelled, progress)
}

func (service *serviceCampaign) emitProgress(dispatchID string, phase domainCampaign.Phase, cancelled bool, progress domainCampaign.Progress) {
	service.realtime.Emit(realtime.EventCampaignProgress, map[string]any{
		"dispatch_id": dispatchID,
		"phase":       string(phase),
		"cancelled":   cancelled,
		"progress":    progress,
	})
}
