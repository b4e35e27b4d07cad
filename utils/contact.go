package utils

import (
	"net/url"
	"strings"
	"unicode"
)

// digitsOnly strips everything but digits, keeping a leading '+' out of the result.
func digitsOnly(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TelLink builds a tel: URI. A leading '+' on the input is preserved.
func TelLink(phone string) string {
	d := digitsOnly(phone)
	if d == "" {
		return ""
	}
	if strings.HasPrefix(strings.TrimSpace(phone), "+") {
		return "tel:+" + d
	}
	return "tel:" + d
}

// WhatsAppLink builds a wa.me deep link, optionally with a prefilled message.
func WhatsAppLink(phone, text string) string {
	d := digitsOnly(phone)
	if d == "" {
		return ""
	}
	link := "https://wa.me/" + d
	if text != "" {
		link += "?text=" + url.QueryEscape(text)
	}
	return link
}

// MailtoLink builds a mailto: URI with subject and body escaped per RFC 6068.
func MailtoLink(to, subject, body string) string {
	q := url.Values{}
	if subject != "" {
		q.Set("subject", subject)
	}
	if body != "" {
		q.Set("body", body)
	}
	link := "mailto:" + to
	if enc := q.Encode(); enc != "" {
		// url.Values encodes spaces as '+', mail clients expect %20
		link += "?" + strings.ReplaceAll(enc, "+", "%20")
	}
	return link
}
