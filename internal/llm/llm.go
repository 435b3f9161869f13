// Package llm defines the vendor-neutral generative AI contract used by the
// domain services, plus helpers shared by every provider.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"reggenie/internal/models"
)

var (
	// ErrEmptyResponse means the provider answered without any text.
	ErrEmptyResponse = errors.New("empty response from model")
	// ErrMalformedResponse means the text could not be decoded as requested.
	ErrMalformedResponse = errors.New("malformed response from model")
)

type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
	TypeString  SchemaType = "string"
	TypeNumber  SchemaType = "number"
	TypeInteger SchemaType = "integer"
	TypeBoolean SchemaType = "boolean"
)

// Schema constrains a JSON response.
type Schema struct {
	Type       SchemaType
	Properties map[string]*Schema
	Items      *Schema
	Required   []string
}

// String is a shorthand for a string property.
func String() *Schema { return &Schema{Type: TypeString} }

// StringList is a shorthand for an array of strings.
func StringList() *Schema { return &Schema{Type: TypeArray, Items: String()} }

// Object builds an object schema from its properties.
func Object(props map[string]*Schema) *Schema {
	return &Schema{Type: TypeObject, Properties: props}
}

// ArrayOf builds an array schema.
func ArrayOf(items *Schema) *Schema { return &Schema{Type: TypeArray, Items: items} }

// Blob is inline binary input (audio, PDF, DOCX ...).
type Blob struct {
	MIMEType string
	Data     []byte
}

// Request is a single generation call.
type Request struct {
	System string
	Prompt string
	// JSON asks for application/json output; Schema further constrains it.
	JSON   bool
	Schema *Schema
	Blobs  []Blob
}

// SearchResult is a search-grounded answer with its citations.
type SearchResult struct {
	Text    string
	Sources []models.Source
}

// Turn is one prior message of a chat.
type Turn struct {
	Role models.ChatRole
	Text string
}

// Generator is implemented by the Gemini client.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Search(ctx context.Context, prompt string) (*SearchResult, error)
}

// ChatStreamer streams a chat reply chunk by chunk.
type ChatStreamer interface {
	StreamChat(ctx context.Context, system string, history []Turn, message string, onChunk func(string)) error
}

// CleanJSON strips markdown code fences a model may wrap JSON in.
func CleanJSON(text string) string {
	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}

// CleanHTML strips markdown fences around generated HTML.
func CleanHTML(text string) string {
	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```html")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}

// GenerateJSON runs req in JSON mode and decodes the answer into out.
func GenerateJSON(ctx context.Context, g Generator, req Request, out any) error {
	req.JSON = true
	text, err := g.Generate(ctx, req)
	if err != nil {
		return err
	}
	clean := CleanJSON(text)
	if clean == "" {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal([]byte(clean), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
