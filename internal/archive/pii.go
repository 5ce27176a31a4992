package archive

import "regexp"

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	// MyKad numbers: YYMMDD-PB-###G, dashes optional.
	nricRe = regexp.MustCompile(`\b\d{6}-?\d{2}-?\d{4}\b`)
	// Malaysian mobile (01x) and landline (03..09) numbers, local or +60.
	phoneRe = regexp.MustCompile(`(?:\+60[-\s]?|\b60[-\s]?|\b0)(?:1\d|[3-9])[-\s]?\d{3,4}[-\s]?\d{4}\b`)
)

// ScrubPII replaces emails, identity card numbers and phone numbers with
// placeholders. Symptoms and names are kept.
func ScrubPII(text string) string {
	text = emailRe.ReplaceAllString(text, "[EMAIL]")
	text = nricRe.ReplaceAllString(text, "[NRIC]")
	text = phoneRe.ReplaceAllString(text, "[PHONE]")
	return text
}

// ScrubMessages applies PII scrubbing to all messages in-place.
func ScrubMessages(msgs []Message) {
	for i := range msgs {
		msgs[i].Content = ScrubPII(msgs[i].Content)
	}
}
