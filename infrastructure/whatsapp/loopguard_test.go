package whatsapp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(t *testing.T, interval time.Duration) *LoopGuard {
	t.Helper()
	guard := NewLoopGuard(interval)
	t.Cleanup(guard.Close)
	return guard
}

func TestSuppressEchoConsumesMarkedID(t *testing.T) {
	guard := newTestGuard(t, time.Minute)

	guard.MarkUISend("MSG-1")

	// cada ID suprime exactamente un eco
	assert.True(t, guard.SuppressEcho("MSG-1"))
	assert.False(t, guard.SuppressEcho("MSG-1"))
}

func TestSuppressEchoWhileUISendInFlight(t *testing.T) {
	guard := newTestGuard(t, time.Minute)

	guard.BeginUISend()
	// durante un envío de UI se suprime cualquier eco, incluso sin ID marcado
	assert.True(t, guard.SuppressEcho("MSG-without-mark"))
	guard.EndUISend()

	assert.False(t, guard.SuppressEcho("MSG-without-mark"))
}

func TestSuppressEchoWhileAutomationSendInFlight(t *testing.T) {
	guard := newTestGuard(t, time.Minute)

	guard.BeginAutomationSend()
	assert.True(t, guard.SuppressEcho("MSG-auto"))
	guard.EndAutomationSend()

	assert.False(t, guard.SuppressEcho("MSG-auto"))
}

func TestSuppressEchoCheckOrder(t *testing.T) {
	guard := newTestGuard(t, time.Minute)

	// con el flag de UI activo el ID marcado NO se consume
	guard.MarkUISend("MSG-2")
	guard.BeginUISend()
	assert.True(t, guard.SuppressEcho("MSG-2"))
	guard.EndUISend()

	// el ID sigue disponible para suprimir el eco real
	assert.True(t, guard.SuppressEcho("MSG-2"))
	assert.False(t, guard.SuppressEcho("MSG-2"))
}

func TestPeriodicClearForgetsOldIDs(t *testing.T) {
	guard := newTestGuard(t, 30*time.Millisecond)

	guard.MarkUISend("MSG-old")

	// esperar más de un período de limpieza antes de consultar
	time.Sleep(150 * time.Millisecond)
	require.False(t, guard.ConsumeIfUISend("MSG-old"), "el clear periódico debe vaciar el set completo")
}

func TestMarkUISendIgnoresEmptyID(t *testing.T) {
	guard := newTestGuard(t, time.Minute)

	guard.MarkUISend("")
	assert.False(t, guard.ConsumeIfUISend(""))
}
