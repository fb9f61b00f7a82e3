package idempotency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateKeyIsDeterministic(t *testing.T) {
	g := NewGenerator()

	params := map[string]interface{}{
		"event_type":   "charge.success",
		"reference":    "R1",
		"payload_hash": "abc123",
	}

	first := g.GenerateKey(ScopeWebhookEvent, params)
	second := g.GenerateKey(ScopeWebhookEvent, params)
	assert.Equal(t, first, second)
	assert.Contains(t, first, string(ScopeWebhookEvent))
}

func TestGenerateKeyOrderIndependent(t *testing.T) {
	g := NewGenerator()

	// maps iterate in random order; the key must not depend on it
	a := g.GenerateKey(ScopeWebhookEvent, map[string]interface{}{
		"reference":  "R1",
		"event_type": "charge.success",
	})
	b := g.GenerateKey(ScopeWebhookEvent, map[string]interface{}{
		"event_type": "charge.success",
		"reference":  "R1",
	})
	assert.Equal(t, a, b)
}

func TestGenerateKeyDiffersByParams(t *testing.T) {
	g := NewGenerator()

	base := map[string]interface{}{
		"event_type":   "charge.success",
		"reference":    "R1",
		"payload_hash": "abc123",
	}
	other := map[string]interface{}{
		"event_type":   "charge.success",
		"reference":    "R1",
		"payload_hash": "def456",
	}

	assert.NotEqual(t,
		g.GenerateKey(ScopeWebhookEvent, base),
		g.GenerateKey(ScopeWebhookEvent, other),
	)
}

func TestGenerateKeyDiffersByScope(t *testing.T) {
	g := NewGenerator()

	params := map[string]interface{}{"reference": "R1"}
	assert.NotEqual(t,
		g.GenerateKey(ScopeWebhookEvent, params),
		g.GenerateKey(ScopePayment, params),
	)
}

func TestValidateKey(t *testing.T) {
	g := NewGenerator()

	params := map[string]interface{}{"reference": "R1"}
	key := g.GenerateKey(ScopePayment, params)

	assert.True(t, g.ValidateKey(ScopePayment, params, key))
	assert.False(t, g.ValidateKey(ScopePayment, map[string]interface{}{"reference": "R2"}, key))
}

func TestPayloadHashStable(t *testing.T) {
	payload := []byte(`{"event":"charge.success"}`)

	assert.Equal(t, PayloadHash(payload), PayloadHash(payload))
	assert.NotEqual(t, PayloadHash(payload), PayloadHash([]byte(`{"event":"charge.failed"}`)))
	assert.Len(t, PayloadHash(payload), 64)
}
