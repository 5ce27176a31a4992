package assistant

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wolfman30/klinikai/internal/triage"
)

//go:embed prompt.yaml
var defaultPromptYAML []byte

// Prompt is the agent's system prompt and tool descriptions.
type Prompt struct {
	Name     string            `yaml:"name"`
	MaxSteps int               `yaml:"max_steps"`
	System   string            `yaml:"system"`
	Tools    map[string]string `yaml:"tools"`
}

// ParsePrompt decodes a prompt definition.
func ParsePrompt(data []byte) (*Prompt, error) {
	var p Prompt
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("assistant: parse prompt: %w", err)
	}
	if strings.TrimSpace(p.System) == "" {
		return nil, errors.New("assistant: prompt has no system text")
	}
	return &p, nil
}

// DefaultPrompt returns the embedded prompt.
func DefaultPrompt() *Prompt {
	p, err := ParsePrompt(defaultPromptYAML)
	if err != nil {
		panic(err)
	}
	return p
}

// SystemFor renders the system text for the patient's language, listing
// the specialties from catalog.
func (p *Prompt) SystemFor(lang triage.Language, catalog *triage.Catalog) string {
	var specialties []string
	for _, name := range catalog.Names() {
		specialties = append(specialties, "- "+name)
	}
	r := strings.NewReplacer(
		"{{specialties}}", strings.Join(specialties, "\n"),
		"{{language}}", lang.Instruction(),
	)
	return strings.TrimSpace(r.Replace(p.System))
}

// ToolDescription returns the configured description for a tool.
func (p *Prompt) ToolDescription(name string) string {
	return p.Tools[name]
}
