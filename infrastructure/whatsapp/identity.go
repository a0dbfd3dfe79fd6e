package whatsapp

import (
	"sync"

	"github.com/AzielCF/az-crm/domains/transport"
	"github.com/AzielCF/az-crm/pkg/phone"
	"github.com/sirupsen/logrus"
)

// IdentityResolver decides whether an observed event originates from the
// account's own number. The self number is discovered opportunistically
// when the transport reports ready; until then checks degrade to the
// transport's native from-me flag alone.
type IdentityResolver struct {
	mu         sync.RWMutex
	selfNumber string
}

func NewIdentityResolver() *IdentityResolver {
	return &IdentityResolver{}
}

// ObserveReady records the authenticated identity exposed by the
// transport's ready state.
func (r *IdentityResolver) ObserveReady(selfNumber string) {
	bare := phone.Bare(selfNumber)
	if bare == "" {
		return
	}
	r.mu.Lock()
	if r.selfNumber != bare {
		r.selfNumber = bare
		logrus.Infof("[IDENTITY] Self number resolved: %s", bare)
	}
	r.mu.Unlock()
}

func (r *IdentityResolver) SelfNumber() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selfNumber
}

// IsOwnMessage applies the decision order: transport native from-me flag,
// then sender match, then group-author match. The first positive wins;
// later checks are fallback only.
func (r *IdentityResolver) IsOwnMessage(evt transport.InboundEvent) bool {
	if evt.FromMe {
		return true
	}

	self := r.SelfNumber()
	if self == "" {
		return false
	}
	if phone.Same(evt.Sender, self) {
		return true
	}
	if evt.Author != "" && phone.Same(evt.Author, self) {
		return true
	}
	return false
}
