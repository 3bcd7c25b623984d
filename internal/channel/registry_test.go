package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/deliverylog"
)

func TestRegistry(t *testing.T) {
	store := deliverylog.NewMemoryStore()
	twilio := NewTwilioClient("AC123", "token", "", 0)

	reg := NewRegistry()
	assert.Nil(t, reg.Get(SMS))

	sms := NewSMSSender(twilio, "+15550100", store)
	reg.Register(sms)
	reg.Register(NewWhatsAppSender(twilio, "+15550100", store))

	assert.Same(t, sms, reg.Get(SMS).(*SMSSender))
	assert.NotNil(t, reg.Get(WhatsApp))
	assert.Nil(t, reg.Get(Telegram))
	assert.Nil(t, reg.Get("pager"))
}

func TestErrorTexts(t *testing.T) {
	pe := &ProviderError{Provider: "Twilio", StatusCode: 400, Message: "bad number"}
	assert.Equal(t, "Twilio API error: bad number", pe.Error())

	ve := &ValidationError{Reason: "No chat ID provided"}
	assert.Equal(t, "No chat ID provided", ve.Error())
	assert.True(t, IsValidation(ve))
	assert.False(t, IsValidation(pe))
}
