package types

import (
	"fmt"

	"github.com/samber/lo"
)

// GatewayStatus represents the remote status of a hosted-payment transaction
// as reported by the payment provider
type GatewayStatus string

const (
	GatewayStatusPending   GatewayStatus = "pending"
	GatewayStatusSuccess   GatewayStatus = "success"
	GatewayStatusFailed    GatewayStatus = "failed"
	GatewayStatusAbandoned GatewayStatus = "abandoned"
)

func (s GatewayStatus) String() string {
	return string(s)
}

func (s GatewayStatus) Validate() error {
	allowed := []GatewayStatus{
		GatewayStatusPending,
		GatewayStatusSuccess,
		GatewayStatusFailed,
		GatewayStatusAbandoned,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid gateway status: %s", s)
	}
	return nil
}

// IsTerminal returns true once the provider can no longer change the outcome
func (s GatewayStatus) IsTerminal() bool {
	return s == GatewayStatusSuccess || s == GatewayStatusFailed || s == GatewayStatusAbandoned
}

// Gateway webhook event types delivered by the provider
const (
	GatewayEventChargeSuccess   = "charge.success"
	GatewayEventChargeFailed    = "charge.failed"
	GatewayEventChargeAbandoned = "charge.abandoned"
)
