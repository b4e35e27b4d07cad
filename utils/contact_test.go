package utils

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelLink(t *testing.T) {
	assert.Equal(t, "tel:+26771234567", TelLink("+267 71 234 567"))
	assert.Equal(t, "tel:71234567", TelLink("71-234-567"))
	assert.Equal(t, "", TelLink("n/a"))
}

func TestWhatsAppLink(t *testing.T) {
	assert.Equal(t, "https://wa.me/26771234567", WhatsAppLink("+267 7123 4567", ""))

	link := WhatsAppLink("26771234567", "I'm at the gate")
	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "wa.me", u.Host)
	assert.Equal(t, "I'm at the gate", u.Query().Get("text"))
}

func TestMailtoLink(t *testing.T) {
	link := MailtoLink("support@getmore.co.bw", "Ride issue", "Driver: Kabo & co")

	assert.Contains(t, link, "mailto:support@getmore.co.bw?")
	assert.Contains(t, link, "subject=Ride%20issue")
	assert.Contains(t, link, "body=Driver%3A%20Kabo%20%26%20co")
	assert.NotContains(t, link, "+")

	assert.Equal(t, "mailto:a@b.c", MailtoLink("a@b.c", "", ""))
}
