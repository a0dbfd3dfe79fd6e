package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	domainCampaign "github.com/AzielCF/az-crm/domains/campaign"
	domainIntegration "github.com/AzielCF/az-crm/domains/integration"
	"github.com/AzielCF/az-crm/domains/realtime"
	pkgError "github.com/AzielCF/az-crm/pkg/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCampaignFixture(cfg domainIntegration.Config) (*fakeTransport, *fakeEmitter, *serviceCampaign) {
	client := &fakeTransport{}
	emitter := &fakeEmitter{}
	service := NewCampaignService(client, domainIntegration.NewCache(cfg), emitter, time.Millisecond).(*serviceCampaign)
	service.sleepFn = func(time.Duration) {} // sin pausas reales en pruebas
	return client, emitter, service
}

func waitForIdle(t *testing.T, service *serviceCampaign) domainCampaign.Snapshot {
	t.Helper()
	require.Eventually(t, func() bool {
		return service.Snapshot().Phase == domainCampaign.PhaseIdle
	}, 5*time.Second, 5*time.Millisecond, "la campaña no terminó a tiempo")
	return service.Snapshot()
}

func TestCampaignValidatesEveryNumber(t *testing.T) {
	client, _, service := newCampaignFixture(domainIntegration.Config{})
	client.resolveFn = func(number string) (bool, error) {
		// el segundo número no existe en la plataforma
		return number != "5511000000002", nil
	}

	numbers := []string{"5511000000001", "5511000000002", "5511000000003"}
	dispatchID, err := service.Start(context.Background(), numbers, domainCampaign.MessageSpec{
		Kind: domainCampaign.KindText,
		Body: "promo",
	})
	require.NoError(t, err)
	require.NotEmpty(t, dispatchID)

	snap := waitForIdle(t, service)
	assert.Equal(t, dispatchID, snap.DispatchID)
	assert.Equal(t, 3, snap.Progress.Total)
	// cada número termina validado o fallido, nunca en el limbo
	assert.Equal(t, snap.Progress.Total, snap.Progress.Validated+len(snap.Progress.InvalidNumbers))
	assert.Equal(t, []string{"5511000000002"}, snap.Progress.InvalidNumbers)
	assert.Equal(t, 2, snap.Progress.Sent)
	assert.Equal(t, 1, snap.Progress.Failed)
}

func TestCampaignBypassSkipsResolution(t *testing.T) {
	client, _, service := newCampaignFixture(domainIntegration.Config{MassDispatchBypass: true})
	resolved := false
	client.resolveFn = func(string) (bool, error) {
		resolved = true
		return false, nil
	}

	_, err := service.Start(context.Background(), []string{"5511000000001", "5511000000002"}, domainCampaign.MessageSpec{
		Kind: domainCampaign.KindText,
		Body: "promo",
	})
	require.NoError(t, err)

	snap := waitForIdle(t, service)
	assert.False(t, resolved, "con bypass activo no debe resolverse ningún número")
	assert.Equal(t, 2, snap.Progress.Validated)
	assert.Equal(t, 2, snap.Progress.Sent)
}

func TestCampaignRejectsConcurrentStart(t *testing.T) {
	client, _, service := newCampaignFixture(domainIntegration.Config{})
	release := make(chan struct{})
	client.resolveFn = func(string) (bool, error) {
		<-release
		return true, nil
	}

	first, err := service.Start(context.Background(), []string{"5511000000001"}, domainCampaign.MessageSpec{
		Kind: domainCampaign.KindText,
		Body: "promo",
	})
	require.NoError(t, err)

	_, err = service.Start(context.Background(), []string{"5511000000002"}, domainCampaign.MessageSpec{
		Kind: domainCampaign.KindText,
		Body: "promo",
	})
	require.Error(t, err)

	var genericErr pkgError.GenericError
	require.True(t, errors.As(err, &genericErr))
	assert.Equal(t, "CAMPAIGN_ALREADY_RUNNING", genericErr.ErrCode())

	close(release)
	snap := waitForIdle(t, service)
	// la campaña activa no se ve afectada por el intento rechazado
	assert.Equal(t, first, snap.DispatchID)
	assert.Equal(t, 1, snap.Progress.Sent)
}

func TestCampaignStopIsCooperative(t *testing.T) {
	_, _, service := newCampaignFixture(domainIntegration.Config{MassDispatchBypass: true})

	numbers := make([]string, 50)
	for i := range numbers {
		numbers[i] = "55110000000" + string(rune('0'+i%10)) + string(rune('0'+i/10))
	}

	// la primera pausa entre envíos pide la cancelación de la corrida
	service.sleepFn = func(time.Duration) {
		service.RequestStop(service.Snapshot().DispatchID)
	}

	_, err := service.Start(context.Background(), numbers, domainCampaign.MessageSpec{
		Kind: domainCampaign.KindText,
		Body: "promo",
	})
	require.NoError(t, err)

	snap := waitForIdle(t, service)
	assert.True(t, snap.Cancelled)
	assert.Less(t, snap.Progress.Sent, len(numbers), "la cancelación debe cortar el envío")
	assert.Greater(t, snap.Progress.Sent, 0)
}

func TestCampaignStopDuringValidationSkipsSending(t *testing.T) {
	client, emitter, service := newCampaignFixture(domainIntegration.Config{})

	// la primera resolución pide la cancelación de la corrida
	client.resolveFn = func(string) (bool, error) {
		service.RequestStop(service.Snapshot().DispatchID)
		return true, nil
	}

	_, err := service.Start(context.Background(), []string{"5511000000001", "5511000000002"}, domainCampaign.MessageSpec{
		Kind: domainCampaign.KindText,
		Body: "promo",
	})
	require.NoError(t, err)

	snap := waitForIdle(t, service)
	assert.True(t, snap.Cancelled)
	assert.Equal(t, 0, snap.Progress.Sent)
	assert.Empty(t, client.textSends())

	// la fase de envío nunca debe ser observable en una corrida cancelada
	// durante la validación
	for _, event := range emitter.byEvent(realtime.EventCampaignProgress) {
		payload := event.Payload.(map[string]any)
		assert.NotEqual(t, string(domainCampaign.PhaseSending), payload["phase"])
	}
}

func TestCampaignTemplateKindSendsRenderedBody(t *testing.T) {
	client, _, service := newCampaignFixture(domainIntegration.Config{MassDispatchBypass: true})

	_, err := service.Start(context.Background(), []string{"5511000000001", "5511000000002"}, domainCampaign.MessageSpec{
		Kind: domainCampaign.KindTemplate,
		Body: "hola {{nombre}}, tu pedido está listo",
	})
	require.NoError(t, err)

	snap := waitForIdle(t, service)
	assert.Equal(t, 2, snap.Progress.Sent)

	sends := client.textSends()
	require.Len(t, sends, 2)
	for _, send := range sends {
		assert.Equal(t, "hola {{nombre}}, tu pedido está listo", send.Body)
	}
}

func TestCampaignStopIgnoresMismatchedID(t *testing.T) {
	_, _, service := newCampaignFixture(domainIntegration.Config{})

	assert.False(t, service.RequestStop("nope"), "sin campaña activa no hay nada que parar")

	_, err := service.Start(context.Background(), []string{"5511000000001"}, domainCampaign.MessageSpec{
		Kind: domainCampaign.KindText,
		Body: "promo",
	})
	require.NoError(t, err)
	assert.False(t, service.RequestStop("otro-dispatch"))

	snap := waitForIdle(t, service)
	assert.False(t, snap.Cancelled)
}

func TestCampaignSkipsDuplicateNumbers(t *testing.T) {
	client, _, service := newCampaignFixture(domainIntegration.Config{MassDispatchBypass: true})

	_, err := service.Start(context.Background(),
		[]string{"5511000000001", "5511000000001", "5511000000002"},
		domainCampaign.MessageSpec{Kind: domainCampaign.KindText, Body: "promo"})
	require.NoError(t, err)

	snap := waitForIdle(t, service)
	assert.Equal(t, 2, snap.Progress.Sent)
	assert.Len(t, client.textSends(), 2)
}

func TestCampaignEmitsProgress(t *testing.T) {
	_, emitter, service := newCampaignFixture(domainIntegration.Config{MassDispatchBypass: true})

	_, err := service.Start(context.Background(), []string{"5511000000001", "5511000000002"}, domainCampaign.MessageSpec{
		Kind: domainCampaign.KindText,
		Body: "promo",
	})
	require.NoError(t, err)
	waitForIdle(t, service)

	events := emitter.byEvent(realtime.EventCampaignProgress)
	// dos validaciones, dos envíos y el cierre de la corrida
	assert.GreaterOrEqual(t, len(events), 5)
}

func TestCampaignRejectsEmptyNumbers(t *testing.T) {
	_, _, service := newCampaignFixture(domainIntegration.Config{})

	_, err := service.Start(context.Background(), nil, domainCampaign.MessageSpec{
		Kind: domainCampaign.KindText,
		Body: "promo",
	})
	require.Error(t, err)

	var genericErr pkgError.GenericError
	require.True(t, errors.As(err, &genericErr))
	assert.Equal(t, "VALIDATION_ERROR", genericErr.ErrCode())
}
