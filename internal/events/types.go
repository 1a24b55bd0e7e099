package events

// Kind identifies a lifecycle event. The string form is the stable name
// external listeners subscribe with.
type Kind string

const (
	SmsPreSave            Kind = "sms.pre_save"
	SmsPostSave           Kind = "sms.post_save"
	SmsPreDelete          Kind = "sms.pre_delete"
	SmsPostDelete         Kind = "sms.post_delete"
	SmsOnSend             Kind = "sms.on_send"
	TokenReplacement      Kind = "sms.token_replacement"
	CampaignTriggerAction Kind = "sms.campaign_trigger_action"
)

// Kinds lists every event kind.
func Kinds() []Kind {
	return []Kind{SmsPreSave, SmsPostSave, SmsPreDelete, SmsPostDelete, SmsOnSend, TokenReplacement, CampaignTriggerAction}
}

// Vetoable reports whether a listener error aborts the surrounding operation.
func (k Kind) Vetoable() bool {
	return k == SmsPreSave || k == SmsPreDelete
}

func (k Kind) String() string {
	return string(k)
}

const AggregateTypeSms = "sms"

const ChannelPrefixSms = "channel:sms:"
