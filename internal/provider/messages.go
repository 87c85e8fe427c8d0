package provider

// Prompt is the provider-neutral request shape. The system text travels
// separately from the message list because backends place it differently.
type Prompt struct {
	System   string
	Messages []Message
}

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation, built from one or more parts.
type Message struct {
	Role  Role
	Parts []Part
}

// Part is a piece of message content. Concrete types: TextPart, ImagePart,
// FilePart.
type Part interface {
	isPart()
}

// TextPart is plain text content.
type TextPart struct {
	Text string
}

// ImagePart references an image by URL or carries its bytes inline.
type ImagePart struct {
	Source    Source
	MediaType string
}

// FilePart attaches a document such as a PDF.
type FilePart struct {
	Source    Source
	MediaType string
	Filename  string
}

func (TextPart) isPart()  {}
func (ImagePart) isPart() {}
func (FilePart) isPart()  {}

// SourceKind discriminates how binary content is delivered.
type SourceKind string

const (
	SourceURL    SourceKind = "url"
	SourceBase64 SourceKind = "base64"
	SourceBytes  SourceKind = "bytes"
)

// Source is where image or file content comes from. URL is set for
// SourceURL; Data holds base64 text for SourceBase64 and raw bytes for
// SourceBytes.
type Source struct {
	Kind SourceKind
	URL  string
	Data []byte
}

// UserText is shorthand for the common single-turn text prompt.
func UserText(system, text string) Prompt {
	return Prompt{
		System: system,
		Messages: []Message{
			{Role: RoleUser, Parts: []Part{TextPart{Text: text}}},
		},
	}
}

// TextOf flattens a message's text parts into one string. Non-text parts
// are skipped.
func (m Message) TextOf() string {
	var out string
	for _, p := range m.Parts {
		if tp, ok := p.(TextPart); ok {
			if out != "" {
				out += "\n"
			}
			out += tp.Text
		}
	}
	return out
}
