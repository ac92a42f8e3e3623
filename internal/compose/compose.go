// Package compose builds mail-client links for drafted application emails.
package compose

import (
	"net/url"
	"strings"
)

// MailtoURL returns a mailto: link that opens a new message to the given
// recipient with subject and body prefilled. Empty subject or body are omitted.
func MailtoURL(to, subject, body string) string {
	u := url.URL{Scheme: "mailto", Opaque: strings.TrimSpace(to)}

	var params []string
	if subject != "" {
		params = append(params, "subject="+escape(subject))
	}
	if body != "" {
		params = append(params, "body="+escape(body))
	}
	u.RawQuery = strings.Join(params, "&")
	return u.String()
}

// escape percent-encodes s for a mailto header value. Spaces become %20
// rather than '+', which mail clients would show literally.
func escape(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", "\r\n")
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
