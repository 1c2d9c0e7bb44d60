package core

const (
	AttachmentNone AttachmentKind = iota
	AttachmentPhoto
	AttachmentVoice
)

// AttachmentKind tags the optional media payload on an item. The original
// store inferred "voice" by sniffing the data URI prefix of a positional
// argument; callers here state the kind explicitly.
type AttachmentKind int

// Attachment is an optional media payload, a base64 data URI. The zero
// value means no attachment.
type Attachment struct {
	Kind AttachmentKind
	Data string
}

func PhotoAttachment(data string) Attachment {
	return Attachment{Kind: AttachmentPhoto, Data: data}
}

func VoiceAttachment(data string) Attachment {
	return Attachment{Kind: AttachmentVoice, Data: data}
}

func (a Attachment) IsZero() bool {
	return a.Kind == AttachmentNone
}

func (k AttachmentKind) String() string {
	switch k {
	case AttachmentPhoto:
		return "photo"
	case AttachmentVoice:
		return "voice"
	default:
		return "none"
	}
}

// ParseAttachmentKind maps a form value to a kind. Empty means none.
func ParseAttachmentKind(s string) (AttachmentKind, bool) {
	switch s {
	case "", "none":
		return AttachmentNone, true
	case "photo":
		return AttachmentPhoto, true
	case "voice":
		return AttachmentVoice, true
	default:
		return AttachmentNone, false
	}
}
