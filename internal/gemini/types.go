package gemini

import "strings"

// Wire structs for the Generative Language REST API (v1beta).
// JSON field names follow the API's camelCase convention.

// Conversation roles accepted by the API.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// FinishReasonSafety marks a candidate that was blocked by the safety filter.
const FinishReasonSafety = "SAFETY"

// Content is one turn of model input or output.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is a single piece of content: text, inline bytes, or a reference to
// a previously uploaded file.
type Part struct {
	Text       string    `json:"text,omitempty"`
	InlineData *Blob     `json:"inlineData,omitempty"`
	FileData   *FileData `json:"fileData,omitempty"`
}

// Blob carries raw media bytes, base64-encoded.
type Blob struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

// FileData references a file in the provider's file store by URI.
type FileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri,omitempty"`
}

// Text returns a text-only part.
func Text(s string) Part { return Part{Text: s} }

// UserContent wraps parts in a user-role content turn.
func UserContent(parts ...Part) Content {
	return Content{Role: RoleUser, Parts: parts}
}

// SystemContent wraps a text instruction for the systemInstruction field.
// The API rejects a role on system instructions, so none is set.
func SystemContent(instruction string) *Content {
	return &Content{Parts: []Part{Text(instruction)}}
}

// GenerateRequest is the body of a generateContent call.
type GenerateRequest struct {
	SystemInstruction *Content  `json:"systemInstruction,omitempty"`
	Contents          []Content `json:"contents"`
}

// GenerateResponse is the body of a successful generateContent call.
type GenerateResponse struct {
	Candidates     []Candidate     `json:"candidates,omitempty"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
}

// Candidate is one generated completion.
type Candidate struct {
	Content       *Content       `json:"content,omitempty"`
	FinishReason  string         `json:"finishReason,omitempty"`
	SafetyRatings []SafetyRating `json:"safetyRatings,omitempty"`
}

// SafetyRating scores one harm category for a prompt or candidate.
type SafetyRating struct {
	Category    string `json:"category"`
	Probability string `json:"probability"`
	Blocked     bool   `json:"blocked,omitempty"`
}

// PromptFeedback reports why a prompt itself was rejected.
type PromptFeedback struct {
	BlockReason   string         `json:"blockReason,omitempty"`
	SafetyRatings []SafetyRating `json:"safetyRatings,omitempty"`
}

// Text returns the concatenated text parts of the first candidate, or the
// empty string when the response carries no usable candidate.
func (r *GenerateResponse) Text() string {
	if r == nil || len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// FileInfo describes a file in the provider's file store.
type FileInfo struct {
	Name     string `json:"name,omitempty"`
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
}
