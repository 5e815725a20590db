package model

import (
	"time"

	"go.uber.org/zap"
)

// Profile selects how /api/generate resolves its credential
type Profile string

const (
	// ProfileSingle forwards the whole request body using the one global key.
	ProfileSingle Profile = "single"
	// ProfileMulti expects {assistant, payload} and picks a key per assistant.
	ProfileMulti Profile = "multi"
)

// Valid reports whether p is a known profile.
func (p Profile) Valid() bool {
	return p == ProfileSingle || p == ProfileMulti
}

// Assistant identifies which upstream credential a multi-profile request uses.
type Assistant int

const (
	AssistantUnknown Assistant = iota
	AssistantRahban
	AssistantGhararban
)

// ParseAssistant maps the wire name to an Assistant. Matching is exact.
func ParseAssistant(name string) (Assistant, bool) {
	switch name {
	case "rahban":
		return AssistantRahban, true
	case "ghararban":
		return AssistantGhararban, true
	default:
		return AssistantUnknown, false
	}
}

func (a Assistant) String() string {
	switch a {
	case AssistantRahban:
		return "rahban"
	case AssistantGhararban:
		return "ghararban"
	default:
		return "unknown"
	}
}

// Credentials holds the upstream keys loaded at startup. Never mutated after load.
type Credentials struct {
	Single    string
	Rahban    string
	Ghararban string
}

// For returns the key bound to an assistant, or "" for AssistantUnknown.
func (c Credentials) For(a Assistant) string {
	switch a {
	case AssistantRahban:
		return c.Rahban
	case AssistantGhararban:
		return c.Ghararban
	default:
		return ""
	}
}

// UpstreamConfig defines where generation requests are forwarded
type UpstreamConfig struct {
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Config is the structure for the proxy configuration
type Config struct {
	ListeningPort int            `yaml:"listening_port"`
	Profile       Profile        `yaml:"profile"`
	Upstream      UpstreamConfig `yaml:"upstream"`
	MaxBodyBytes  int64          `yaml:"max_body_bytes"`
	LogFile       string         `yaml:"log_file"`
	Credentials   Credentials    `yaml:"-"`
	Logger        *zap.Logger    `yaml:"-"`
}
