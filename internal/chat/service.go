// Package chat implements the conversational endpoint: it validates the
// client-held conversation history, asks the model for the next reply and,
// on the first exchange of a session, derives a short session title.
package chat

import (
	"context"
	"strings"

	"github.com/ferdianrazak/gemini-chat/internal/gemini"
)

// Display-only roles the client uses for UI affordances (welcome bubble,
// failed-request bubble). They are never forwarded to the provider.
const (
	roleFirst = "first"
	roleError = "error"
)

const assistantInstruction = "You are a helpful, knowledgeable assistant. " +
	"Answer clearly and concisely, reply in the same language the user writes in, " +
	"and use Markdown formatting when it improves readability."

const titleInstruction = "You label chat sessions. Respond with the title only: " +
	"no quotes, no trailing punctuation, no explanation."

const titlePrompt = "Write a short title of at most 6 words summarizing this " +
	"conversation, in the same language the conversation uses."

// Turn is one message of the client-held conversation history. The client is
// the system of record: the full history arrives on every request.
type Turn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// Generator is the single provider call the orchestrator depends on.
// *gemini.Client satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, req gemini.GenerateRequest) (*gemini.GenerateResponse, error)
}

// ValidationError reports a malformed conversation payload. Its detail is
// surfaced to the caller in the response envelope's detail field.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string { return e.Detail }

// Service orchestrates chat requests against a single configured text model.
type Service struct {
	gen   Generator
	model string
}

// NewService creates a chat service bound to the given model.
func NewService(gen Generator, model string) *Service {
	return &Service{gen: gen, model: model}
}

// Respond validates the conversation, asks the model for the next reply and,
// when newSession is set and the reply is non-empty, asks for a session
// title in a second call. A title call failure fails the whole request even
// though the reply already succeeded.
func (s *Service) Respond(ctx context.Context, turns []*Turn, newSession bool) (reply, title string, err error) {
	if err := validateTurns(turns); err != nil {
		return "", "", err
	}

	contents := providerContents(turns)
	resp, err := s.gen.GenerateContent(ctx, s.model, gemini.GenerateRequest{
		SystemInstruction: gemini.SystemContent(assistantInstruction),
		Contents:          contents,
	})
	if err != nil {
		return "", "", err
	}
	reply = resp.Text()

	if !newSession || reply == "" {
		return reply, "", nil
	}

	titleContents := make([]gemini.Content, 0, len(contents)+2)
	titleContents = append(titleContents, contents...)
	titleContents = append(titleContents,
		gemini.Content{Role: gemini.RoleModel, Parts: []gemini.Part{gemini.Text(reply)}},
		gemini.UserContent(gemini.Text(titlePrompt)),
	)
	titleResp, err := s.gen.GenerateContent(ctx, s.model, gemini.GenerateRequest{
		SystemInstruction: gemini.SystemContent(titleInstruction),
		Contents:          titleContents,
	})
	if err != nil {
		return "", "", err
	}

	return reply, strings.TrimSpace(titleResp.Text()), nil
}

// validateTurns scans the whole conversation and keeps overwriting a single
// error slot, so the last invalid turn wins. Callers only rely on invalidity
// being detected, not on which turn is reported.
func validateTurns(turns []*Turn) error {
	var verr *ValidationError
	for _, t := range turns {
		if t == nil || t.Role == "" || t.Message == "" {
			verr = &ValidationError{Detail: "conversation at body should be array of object with role and message property"}
		}
	}
	if verr != nil {
		return verr
	}
	return nil
}

// providerContents maps the conversation to provider content, dropping the
// display-only roles.
func providerContents(turns []*Turn) []gemini.Content {
	contents := make([]gemini.Content, 0, len(turns))
	for _, t := range turns {
		if t.Role == roleFirst || t.Role == roleError {
			continue
		}
		contents = append(contents, gemini.Content{
			Role:  t.Role,
			Parts: []gemini.Part{gemini.Text(t.Message)},
		})
	}
	return contents
}
