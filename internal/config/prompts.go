package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"nous-core/internal/constant"
)

// FoundationPrompt is the base instruction sent with every PDF.
type FoundationPrompt struct {
	Prompt      string `json:"foundation_prompt"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// Compose appends user instructions to the foundation prompt.
func (p FoundationPrompt) Compose(extra string) string {
	extra = strings.TrimSpace(extra)
	if extra == "" {
		return p.Prompt
	}
	return p.Prompt + constant.AdditionalInstructionsHeader + extra
}

// LoadFoundationPrompt reads path, falling back to the built-in prompt when
// path is empty or unreadable.
func LoadFoundationPrompt(path string) (FoundationPrompt, error) {
	def := FoundationPrompt{
		Prompt:  constant.DefaultFoundationPrompt,
		Version: constant.DefaultFoundationPromptVersion,
	}
	if path == "" {
		return def, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return def, fmt.Errorf("read prompts file: %w", err)
	}
	var p FoundationPrompt
	if err := json.Unmarshal(data, &p); err != nil {
		return def, fmt.Errorf("parse prompts file: %w", err)
	}
	if strings.TrimSpace(p.Prompt) == "" {
		p.Prompt = def.Prompt
	}
	if p.Version == "" {
		p.Version = def.Version
	}
	return p, nil
}

// LoadChatPrompts reads per-mode system prompts from {"prompts": {...}}.
// Modes missing from the file keep their built-in prompt.
func LoadChatPrompts(path string) (map[string]string, error) {
	prompts := constant.DefaultChatSystemPrompts()
	if path == "" {
		return prompts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return prompts, fmt.Errorf("read chatbot prompts file: %w", err)
	}
	var file struct {
		Prompts map[string]string `json:"prompts"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return prompts, fmt.Errorf("parse chatbot prompts file: %w", err)
	}
	for mode, p := range file.Prompts {
		if strings.TrimSpace(p) != "" {
			prompts[mode] = p
		}
	}
	return prompts, nil
}
