// Package control implements the host management plane: a JSON-over-gRPC
// stream for settings updates, model downloads, and status queries. Audio
// frames never cross this channel — the host calls filter.Filter directly
// for those; this package covers everything else a deployed host needs.
package control

import "cleanstream/internal/config"

// Message is the bidirectional stream payload. Only the fields relevant
// to Type are populated in any given message.
type Message struct {
	Type string `json:"type"`

	Settings *config.Settings `json:"settings,omitempty"`

	ModelID  string  `json:"modelId,omitempty"`
	Progress float64 `json:"progress,omitempty"`
	Error    string  `json:"error,omitempty"`

	Active     bool   `json:"active,omitempty"`
	EngineName string `json:"engineName,omitempty"`
}
