package whatsapp

import (
	"testing"

	"github.com/AzielCF/az-crm/domains/transport"
	"github.com/stretchr/testify/assert"
)

func TestIdentityResolverObserveReady(t *testing.T) {
	resolver := NewIdentityResolver()
	assert.Empty(t, resolver.SelfNumber())

	resolver.ObserveReady("5511999998888:12@s.whatsapp.net")
	assert.Equal(t, "5511999998888", resolver.SelfNumber())

	// una identidad vacía nunca pisa la resuelta
	resolver.ObserveReady("")
	assert.Equal(t, "5511999998888", resolver.SelfNumber())
}

func TestIsOwnMessageFromMeFlag(t *testing.T) {
	resolver := NewIdentityResolver()

	// el flag nativo gana aun sin identidad resuelta
	assert.True(t, resolver.IsOwnMessage(transport.InboundEvent{FromMe: true}))
	assert.False(t, resolver.IsOwnMessage(transport.InboundEvent{Sender: "5511999998888@s.whatsapp.net"}))
}

func TestIsOwnMessageBySenderMatch(t *testing.T) {
	resolver := NewIdentityResolver()
	resolver.ObserveReady("5511999998888@s.whatsapp.net")

	assert.True(t, resolver.IsOwnMessage(transport.InboundEvent{
		Sender: "5511999998888:3@s.whatsapp.net",
	}))
	assert.False(t, resolver.IsOwnMessage(transport.InboundEvent{
		Sender: "5511000000001@s.whatsapp.net",
	}))
}

func TestIsOwnMessageByGroupAuthor(t *testing.T) {
	resolver := NewIdentityResolver()
	resolver.ObserveReady("5511999998888@s.whatsapp.net")

	assert.True(t, resolver.IsOwnMessage(transport.InboundEvent{
		Sender: "123456789-group@g.us",
		Author: "5511999998888@s.whatsapp.net",
	}))
	assert.False(t, resolver.IsOwnMessage(transport.InboundEvent{
		Sender: "123456789-group@g.us",
		Author: "5511000000001@s.whatsapp.net",
	}))
}

func TestIsOwnMessageDegradesWithoutIdentity(t *testing.T) {
	resolver := NewIdentityResolver()

	// sin identidad resuelta sólo cuenta el flag nativo
	assert.False(t, resolver.IsOwnMessage(transport.InboundEvent{
		Sender: "5511999998888@s.whatsapp.net",
		Author: "5511999998888@s.whatsapp.net",
	}))
}
