package whatsapp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	domainIntegration "github.com/AzielCF/az-crm/domains/integration"
	domainMessage "github.com/AzielCF/az-crm/domains/message"
	"github.com/AzielCF/az-crm/domains/realtime"
	"github.com/AzielCF/az-crm/domains/transport"
	"github.com/AzielCF/az-crm/infrastructure/webhook"
	"github.com/AzielCF/az-crm/pkg/msgworker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	mu       sync.Mutex
	contacts map[string]transport.Contact
	media    map[string]transport.Media
}

func (s *stubClient) SendText(ctx context.Context, number, body string) (string, error) {
	return "STUB-SENT", nil
}

func (s *stubClient) SendMedia(ctx context.Context, number string, media transport.Media, caption string) (string, error) {
	return "STUB-SENT", nil
}

func (s *stubClient) ResolveNumber(ctx context.Context, number string) (bool, error) {
	return true, nil
}

func (s *stubClient) GetContact(ctx context.Context, number string) (transport.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.contacts[number]; ok {
		return c, nil
	}
	return transport.Contact{Number: number}, nil
}

func (s *stubClient) DownloadMedia(ctx context.Context, evt transport.InboundEvent) (transport.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.media[evt.ID]; ok {
		return m, nil
	}
	return transport.Media{}, assert.AnError
}

type memoryRepo struct {
	mu       sync.Mutex
	messages []domainMessage.Message
}

func (r *memoryRepo) Append(ctx context.Context, msg *domainMessage.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *memoryRepo) GetByMessageID(ctx context.Context, messageID string) (*domainMessage.Message, error) {
	return nil, assert.AnError
}

func (r *memoryRepo) ListByPhone(ctx context.Context, phone string, limit int) ([]domainMessage.Message, error) {
	return nil, nil
}

func (r *memoryRepo) stored() []domainMessage.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domainMessage.Message(nil), r.messages...)
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []string
}

func (e *recordingEmitter) Emit(event string, payload any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func (e *recordingEmitter) count(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, got := range e.events {
		if got == event {
			n++
		}
	}
	return n
}

type pipelineFixture struct {
	client   *stubClient
	repo     *memoryRepo
	guard    *LoopGuard
	emitter  *recordingEmitter
	pipeline *Pipeline

	webhookMu     sync.Mutex
	webhookBodies []map[string]any
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	f := &pipelineFixture{
		client:  &stubClient{contacts: map[string]transport.Contact{}, media: map[string]transport.Media{}},
		repo:    &memoryRepo{},
		emitter: &recordingEmitter{},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		_ = json.Unmarshal(body, &payload)
		f.webhookMu.Lock()
		f.webhookBodies = append(f.webhookBodies, payload)
		f.webhookMu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	cache := domainIntegration.NewCache(domainIntegration.Config{
		InboundReceiveURL: server.URL,
		ProdURL:           server.URL,
	})
	router := webhook.NewRouter(cache, "", time.Second, false)

	f.guard = NewLoopGuard(time.Minute)
	t.Cleanup(f.guard.Close)

	pool := msgworker.NewEventWorkerPool(4, 32)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	t.Cleanup(func() {
		cancel()
		pool.Stop()
	})

	identity := NewIdentityResolver()
	f.pipeline = NewPipeline(f.client, f.repo, identity, f.guard, router, f.emitter, pool,
		t.TempDir(), true)
	return f
}

func (f *pipelineFixture) webhookCalls() []map[string]any {
	f.webhookMu.Lock()
	defer f.webhookMu.Unlock()
	return append([]map[string]any(nil), f.webhookBodies...)
}

func TestPipelineInboundTextFlow(t *testing.T) {
	f := newPipelineFixture(t)
	f.pipeline.Handlers().OnReady("5511222223333@s.whatsapp.net")
	f.client.contacts["5511999998888"] = transport.Contact{Number: "5511999998888", Name: "María"}

	f.pipeline.HandleMessage(transport.InboundEvent{
		ID:        "MSG-IN-1",
		Sender:    "5511999998888@s.whatsapp.net",
		Chat:      "5511999998888@s.whatsapp.net",
		Body:      "oi",
		MediaKind: "text",
		PushName:  "Maria push",
		Timestamp: time.Now(),
	})

	require.Eventually(t, func() bool {
		return len(f.repo.stored()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	stored := f.repo.stored()[0]
	assert.Equal(t, "MSG-IN-1", stored.MessageID)
	assert.Equal(t, "5511999998888", stored.Phone)
	assert.Equal(t, "oi", stored.Body)
	assert.False(t, stored.IsFromMe)
	assert.Equal(t, domainMessage.TypeText, stored.Type)

	require.Eventually(t, func() bool {
		return len(f.webhookCalls()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	payload := f.webhookCalls()[0]
	assert.Equal(t, "5511999998888", payload["phoneNumber"])
	assert.Equal(t, "María", payload["name"])
	assert.Equal(t, "oi", payload["body"])
	assert.Equal(t, "5511222223333", payload["to"])

	assert.Equal(t, 1, f.emitter.count(realtime.EventNewMessage))
}

func TestPipelineSkipsOwnAndBroadcast(t *testing.T) {
	f := newPipelineFixture(t)
	f.pipeline.Handlers().OnReady("5511222223333@s.whatsapp.net")

	// propio por identidad resuelta
	f.pipeline.HandleMessage(transport.InboundEvent{
		ID:     "MSG-OWN",
		Sender: "5511222223333@s.whatsapp.net",
		Chat:   "5511999998888@s.whatsapp.net",
		Body:   "self",
	})
	// difusión de estado
	f.pipeline.HandleMessage(transport.InboundEvent{
		ID:     "MSG-BCAST",
		Sender: "5511999998888@s.whatsapp.net",
		Chat:   "status@broadcast",
		Body:   "story",
	})

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, f.repo.stored())
	assert.Empty(t, f.webhookCalls())
}

func TestPipelineSuppressesEchoOfOwnSend(t *testing.T) {
	f := newPipelineFixture(t)
	f.guard.MarkUISend("MSG-ECHO")

	f.pipeline.HandleMessageCreate(transport.InboundEvent{
		ID:     "MSG-ECHO",
		Sender: "5511222223333@s.whatsapp.net",
		Chat:   "5511999998888@s.whatsapp.net",
		FromMe: true,
		Origin: transport.OriginWeb,
	})

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, f.webhookCalls(), "el eco de un envío propio no genera webhook")
}

func TestPipelineRelaysMobileSend(t *testing.T) {
	f := newPipelineFixture(t)

	f.pipeline.HandleMessageCreate(transport.InboundEvent{
		ID:     "MSG-MOBILE",
		Sender: "5511222223333:2@s.whatsapp.net",
		Chat:   "5511999998888@s.whatsapp.net",
		FromMe: true,
		Origin: transport.OriginMobile,
	})

	require.Eventually(t, func() bool {
		return len(f.webhookCalls()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	payload := f.webhookCalls()[0]
	assert.Equal(t, "5511222223333", payload["author"])
	assert.Equal(t, "5511999998888", payload["to"])

	// el relay móvil no se persiste: el historial enviado lo graban los
	// caminos de envío explícitos
	assert.Empty(t, f.repo.stored())
}

func TestPipelineIgnoresWebOriginCreate(t *testing.T) {
	f := newPipelineFixture(t)

	f.pipeline.HandleMessageCreate(transport.InboundEvent{
		ID:     "MSG-WEB",
		Sender: "5511222223333@s.whatsapp.net",
		Chat:   "5511999998888@s.whatsapp.net",
		FromMe: true,
		Origin: transport.OriginWeb,
	})

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, f.webhookCalls())
}

func TestPipelineStoresMediaPath(t *testing.T) {
	f := newPipelineFixture(t)
	f.client.media["MSG-IMG"] = transport.Media{
		Data:     []byte("fake-jpeg"),
		MimeType: "image/jpeg",
		FileName: "photo.jpg",
	}

	f.pipeline.HandleMessage(transport.InboundEvent{
		ID:        "MSG-IMG",
		Sender:    "5511999998888@s.whatsapp.net",
		Chat:      "5511999998888@s.whatsapp.net",
		HasMedia:  true,
		MediaKind: "image",
		Timestamp: time.Now(),
	})

	require.Eventually(t, func() bool {
		return len(f.repo.stored()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	stored := f.repo.stored()[0]
	assert.Equal(t, domainMessage.TypeImage, stored.Type)
	require.NotNil(t, stored.MediaPath)
	assert.Contains(t, *stored.MediaPath, "MSG-IMG")
}

func TestPipelineMediaFailureStillPersists(t *testing.T) {
	f := newPipelineFixture(t)
	// sin media registrada el download falla

	f.pipeline.HandleMessage(transport.InboundEvent{
		ID:        "MSG-NOMEDIA",
		Sender:    "5511999998888@s.whatsapp.net",
		Chat:      "5511999998888@s.whatsapp.net",
		HasMedia:  true,
		MediaKind: "image",
		Timestamp: time.Now(),
	})

	require.Eventually(t, func() bool {
		return len(f.repo.stored()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	stored := f.repo.stored()[0]
	assert.Nil(t, stored.MediaPath, "la falla de descarga deja la referencia nula")
}
