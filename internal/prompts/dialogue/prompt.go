// Package dialogue holds the prompt, response schema, and response decoding
// for dialogue extraction from a single chunk of script text.
package dialogue

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed system.tmpl
var systemPromptText string

//go:embed user.tmpl
var userPromptText string

var userTemplate = template.Must(template.New("user").Parse(userPromptText))

// PromptData is the data passed to the user prompt template.
type PromptData struct {
	Text string
}

// SystemPrompt returns the default system prompt.
func SystemPrompt() string {
	return systemPromptText
}

// UserPrompt renders the default user prompt for a chunk of text.
func UserPrompt(text string) (string, error) {
	return renderUser(userTemplate, text)
}

// Prompts is an optional override of the default prompt pair. Empty fields
// fall back to the embedded defaults.
type Prompts struct {
	System string
	User   string // text/template with {{.Text}}
}

// Compile parses the user override and checks it references the chunk text.
func (p Prompts) Compile() (*CompiledPrompts, error) {
	cp := &CompiledPrompts{system: systemPromptText, user: userTemplate}
	if strings.TrimSpace(p.System) != "" {
		cp.system = p.System
	}
	if strings.TrimSpace(p.User) != "" {
		tmpl, err := template.New("user").Option("missingkey=error").Parse(p.User)
		if err != nil {
			return nil, fmt.Errorf("parse user prompt: %w", err)
		}
		if !strings.Contains(p.User, ".Text") {
			return nil, fmt.Errorf("user prompt must reference {{.Text}}")
		}
		cp.user = tmpl
	}
	return cp, nil
}

// CompiledPrompts is a ready-to-render prompt pair.
type CompiledPrompts struct {
	system string
	user   *template.Template
}

// System returns the system prompt.
func (cp *CompiledPrompts) System() string {
	return cp.system
}

// User renders the user prompt for text.
func (cp *CompiledPrompts) User(text string) (string, error) {
	return renderUser(cp.user, text)
}

func renderUser(tmpl *template.Template, text string) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, PromptData{Text: text}); err != nil {
		return "", fmt.Errorf("render user prompt: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
