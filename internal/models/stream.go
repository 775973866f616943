package models

// Stream record types, discriminated by the "type" field on the wire.
const (
	RecordSection = "section" // announces the section for subsequent content
	RecordContent = "content" // text appended to the named section
	RecordUpdate  = "update"  // text replacing the named section wholesale
	RecordAudio   = "audio"   // attaches an audio resource path
	RecordDone    = "done"    // terminal marker
)

// StreamRecord is one decoded unit from a streamed explanation response.
type StreamRecord struct {
	Type    string `json:"type"`
	Section string `json:"section,omitempty"`
	Text    string `json:"text,omitempty"`
	URL     string `json:"url,omitempty"`
}
