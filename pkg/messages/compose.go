package messages

import (
	"strings"

	"guardcomms/pkg/models"
)

// inferKind is text without attachments, image when every attachment is an
// image and file otherwise.
func inferKind(attachments []models.Attachment) models.MessageKind {
	if len(attachments) == 0 {
		return models.MessageText
	}
	for _, a := range attachments {
		if !strings.HasPrefix(strings.ToLower(a.MimeType), "image/") {
			return models.MessageFile
		}
	}
	return models.MessageImage
}

// summarize builds the conversation preview line: the body folded onto one
// line and cut to limit runes, or a paperclip and the first attachment name
// for attachment-only messages.
func summarize(body string, attachments []models.Attachment, limit int) string {
	line := strings.Join(strings.Fields(body), " ")
	if line == "" {
		if len(attachments) == 0 {
			return ""
		}
		return "📎 " + attachments[0].Name
	}
	if limit > 0 {
		if r := []rune(line); len(r) > limit {
			line = string(r[:limit])
		}
	}
	return line
}
