package events

import (
	"sms-campaign/internal/domain/sms"
	"sms-campaign/internal/gateway"
	"sms-campaign/internal/proxy"
)

// SmsEvent is dispatched around save and delete.
type SmsEvent struct {
	Sms       *sms.Sms
	Principal proxy.Principal
	IsNew     bool
}

// SendEvent is dispatched once per gateway call, whatever the outcome.
type SendEvent struct {
	Sms       *sms.Sms
	Recipient string
	Content   string
	Result    gateway.Result
}

// TokenReplacementEvent lets listeners rewrite Content before sending.
type TokenReplacementEvent struct {
	Content string
	Sms     *sms.Sms
	Context map[string]string
	Tokens  map[string]string
}

type CampaignTriggerEvent struct {
	Trigger sms.CampaignTrigger
	Sms     *sms.Sms
	Result  *gateway.Result
}
