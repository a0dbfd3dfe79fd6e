package usecase

import (
	"context"
	"fmt"
	"sync"

	domainMessage "github.com/AzielCF/az-crm/domains/message"
	"github.com/AzielCF/az-crm/domains/transport"
)

// fakeTransport implementa transport.Client en memoria para las pruebas.
type fakeTransport struct {
	mu        sync.Mutex
	nextID    int
	sentTexts []fakeSend
	sentMedia []fakeSend

	sendErr   error
	resolveFn func(number string) (bool, error)
}

type fakeSend struct {
	Number   string
	Body     string
	MimeType string
	Caption  string
}

func (f *fakeTransport) SendText(ctx context.Context, number string, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.nextID++
	f.sentTexts = append(f.sentTexts, fakeSend{Number: number, Body: body})
	return fmt.Sprintf("MSG-%d", f.nextID), nil
}

func (f *fakeTransport) SendMedia(ctx context.Context, number string, media transport.Media, caption string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.nextID++
	f.sentMedia = append(f.sentMedia, fakeSend{Number: number, MimeType: media.MimeType, Caption: caption})
	return fmt.Sprintf("MSG-%d", f.nextID), nil
}

func (f *fakeTransport) ResolveNumber(ctx context.Context, number string) (bool, error) {
	f.mu.Lock()
	fn := f.resolveFn
	f.mu.Unlock()
	if fn != nil {
		return fn(number)
	}
	return true, nil
}

func (f *fakeTransport) GetContact(ctx context.Context, number string) (transport.Contact, error) {
	return transport.Contact{Number: number}, nil
}

func (f *fakeTransport) DownloadMedia(ctx context.Context, evt transport.InboundEvent) (transport.Media, error) {
	return transport.Media{}, nil
}

func (f *fakeTransport) textSends() []fakeSend {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeSend(nil), f.sentTexts...)
}

// fakeMessageRepo acumula los mensajes en memoria.
type fakeMessageRepo struct {
	mu       sync.Mutex
	appended []domainMessage.Message
	err      error
}

func (f *fakeMessageRepo) Append(ctx context.Context, msg *domainMessage.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, *msg)
	return nil
}

func (f *fakeMessageRepo) GetByMessageID(ctx context.Context, messageID string) (*domainMessage.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.appended {
		if f.appended[i].MessageID == messageID {
			msg := f.appended[i]
			return &msg, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (f *fakeMessageRepo) ListByPhone(ctx context.Context, phone string, limit int) ([]domainMessage.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domainMessage.Message
	for _, msg := range f.appended {
		if msg.Phone == phone {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) all() []domainMessage.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domainMessage.Message(nil), f.appended...)
}

// fakeEmitter registra los eventos emitidos al canal realtime.
type fakeEmitter struct {
	mu     sync.Mutex
	events []emittedEvent
}

type emittedEvent struct {
	Event   string
	Payload any
}

func (f *fakeEmitter) Emit(event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emittedEvent{Event: event, Payload: payload})
}

func (f *fakeEmitter) byEvent(event string) []emittedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []emittedEvent
	for _, e := range f.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
