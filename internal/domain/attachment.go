package domain

import "strings"

type AttachmentKind string

const (
	AttachmentImage    AttachmentKind = "image"
	AttachmentDocument AttachmentKind = "document"
	AttachmentVideo    AttachmentKind = "video"
	AttachmentAudio    AttachmentKind = "audio"
	AttachmentOther    AttachmentKind = "other"
)

// Attachment is a reference to an uploaded file. The bytes live elsewhere.
type Attachment struct {
	URL  string         `json:"url"`
	Kind AttachmentKind `json:"type"`
}

// ParseAttachmentKind accepts either a coarse kind ("image") or a MIME type ("image/png").
func ParseAttachmentKind(s string) AttachmentKind {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexByte(s, '/'); i >= 0 {
		major, minor := s[:i], s[i+1:]
		switch major {
		case "image", "video", "audio":
			return AttachmentKind(major)
		case "application", "text":
			if minor != "octet-stream" {
				return AttachmentDocument
			}
		}
		return AttachmentOther
	}
	switch AttachmentKind(s) {
	case AttachmentImage, AttachmentDocument, AttachmentVideo, AttachmentAudio:
		return AttachmentKind(s)
	case "pdf", "doc", "file":
		return AttachmentDocument
	}
	return AttachmentOther
}
