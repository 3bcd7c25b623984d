package channel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/deliverylog"
)

func TestWhatsAppSendPrefixesAddresses(t *testing.T) {
	var gotTo, gotFrom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotTo = r.PostFormValue("To")
		gotFrom = r.PostFormValue("From")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM789","status":"queued"}`))
	}))
	defer srv.Close()

	store := deliverylog.NewMemoryStore()
	sender := NewWhatsAppSender(NewTwilioClient("AC123", "token", srv.URL, 0), "+15550100", store)

	rec, err := sender.Send(context.Background(), testAlert(), Config{Enabled: true, Recipient: "+237671234567"}, "farm")
	require.NoError(t, err)

	assert.Equal(t, "whatsapp:+237671234567", gotTo)
	assert.Equal(t, "whatsapp:+15550100", gotFrom)

	// The log records the bare number; prefixes are wire detail.
	assert.Equal(t, "+237671234567", rec.Recipient)
	assert.Equal(t, deliverylog.StatusSent, rec.Status)

	logged, lerr := store.ListRecent(context.Background(), WhatsApp, 10)
	require.NoError(t, lerr)
	require.Len(t, logged, 1)
}

func TestWhatsAppSendRejectsInvalidNumber(t *testing.T) {
	sender := NewWhatsAppSender(NewTwilioClient("AC123", "token", "http://127.0.0.1:1", 0), "+15550100", deliverylog.NewMemoryStore())

	_, err := sender.Send(context.Background(), testAlert(), Config{Enabled: true, Recipient: "whatsapp:+15551234567"}, "farm")

	require.Error(t, err)
	assert.True(t, IsValidation(err))
}
