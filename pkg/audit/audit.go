// Package audit records who did what to the hydraulic API: solve requests,
// scenario analyses, report downloads, and run-history access. Entries are
// structured JSON and can be written either through the application logger
// or to a dedicated append-only file.
package audit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"waterflow/pkg/config"
)

// Action classifies an audited operation.
type Action string

const (
	// ActionSolve covers max-flow computations.
	ActionSolve Action = "SOLVE"
	// ActionAnalyze covers scenario application, sweeps, and failure analysis.
	ActionAnalyze Action = "ANALYZE"
	// ActionReport covers report generation and download.
	ActionReport Action = "REPORT"
	// ActionRead covers run-history reads.
	ActionRead Action = "READ"
	// ActionDelete covers run-history deletion.
	ActionDelete Action = "DELETE"
)

// Outcome is the result of an audited operation.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
	OutcomeDenied  Outcome = "DENIED"
)

// Entry is a single audit record.
type Entry struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	Service      string         `json:"service"`
	Method       string         `json:"method"` // HTTP method and route, e.g. "POST /api/v1/solve"
	Action       Action         `json:"action"`
	Outcome      Outcome        `json:"outcome"`
	UserID       string         `json:"user_id,omitempty"`
	Username     string         `json:"username,omitempty"`
	ClientIP     string         `json:"client_ip,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	RequestID    string         `json:"request_id,omitempty"`
	DurationMs   int64          `json:"duration_ms"`
	ErrorCode    string         `json:"error_code,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Logger is the sink audit entries are written to.
type Logger interface {
	// Log records an audit entry.
	Log(ctx context.Context, entry *Entry) error

	// Close shuts down the logger and flushes any buffered entries.
	Close() error
}

// Config holds audit logger settings.
type Config struct {
	Enabled     bool          `koanf:"enabled"`
	Backend     string        `koanf:"backend"` // log, file
	FilePath    string        `koanf:"file_path"`
	BufferSize  int           `koanf:"buffer_size"`
	FlushPeriod time.Duration `koanf:"flush_period"`

	// ExcludePaths lists URL paths that are never audited (health probes etc.).
	ExcludePaths    []string `koanf:"exclude_paths"`
	IncludeRequest  bool     `koanf:"include_request"`
	IncludeResponse bool     `koanf:"include_response"`
}

// DefaultConfig returns audit settings suitable for development.
func DefaultConfig() *Config {
	return &Config{
		Enabled:     true,
		Backend:     "log",
		BufferSize:  1000,
		FlushPeriod: 5 * time.Second,
	}
}

// FromConfig maps the application audit section onto logger settings.
func FromConfig(cfg *config.AuditConfig) *Config {
	return &Config{
		Enabled:         cfg.Enabled,
		Backend:         cfg.Backend,
		FilePath:        cfg.FilePath,
		BufferSize:      cfg.BufferSize,
		FlushPeriod:     cfg.FlushPeriod,
		ExcludePaths:    cfg.ExcludePaths,
		IncludeRequest:  cfg.IncludeRequest,
		IncludeResponse: cfg.IncludeResponse,
	}
}

// Excluded reports whether the given URL path is excluded from auditing.
func (c *Config) Excluded(path string) bool {
	for _, p := range c.ExcludePaths {
		if p == path {
			return true
		}
	}
	return false
}

// Builder assembles an Entry step by step.
type Builder struct {
	entry *Entry
}

// NewEntry starts a new audit entry stamped with the current time.
func NewEntry() *Builder {
	return &Builder{
		entry: &Entry{
			Timestamp: time.Now(),
			Metadata:  make(map[string]any),
		},
	}
}

// Service sets the originating service name.
func (b *Builder) Service(s string) *Builder {
	b.entry.Service = s
	return b
}

// Method sets the HTTP method and route.
func (b *Builder) Method(m string) *Builder {
	b.entry.Method = m
	return b
}

// Action sets the action classification.
func (b *Builder) Action(a Action) *Builder {
	b.entry.Action = a
	return b
}

// Outcome sets the operation result.
func (b *Builder) Outcome(o Outcome) *Builder {
	b.entry.Outcome = o
	return b
}

// User sets the authenticated user, if any.
func (b *Builder) User(id, username string) *Builder {
	b.entry.UserID = id
	b.entry.Username = username
	return b
}

// Client sets the client address and user agent.
func (b *Builder) Client(ip, userAgent string) *Builder {
	b.entry.ClientIP = ip
	b.entry.UserAgent = userAgent
	return b
}

// RequestID sets the correlation ID of the request.
func (b *Builder) RequestID(id string) *Builder {
	b.entry.RequestID = id
	return b
}

// Duration records how long the operation took.
func (b *Builder) Duration(d time.Duration) *Builder {
	b.entry.DurationMs = d.Milliseconds()
	return b
}

// Error attaches an application error code and message for failed operations.
func (b *Builder) Error(code, message string) *Builder {
	b.entry.ErrorCode = code
	b.entry.ErrorMessage = message
	return b
}

// Meta adds an arbitrary key-value pair to the entry metadata.
func (b *Builder) Meta(key string, value any) *Builder {
	b.entry.Metadata[key] = value
	return b
}

// Build finalizes the entry, generating an ID when none was set.
func (b *Builder) Build() *Entry {
	if b.entry.ID == "" {
		b.entry.ID = generateID()
	}
	return b.entry
}

func generateID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return time.Now().Format("20060102150405.000000000")
	}
	return time.Now().Format("20060102150405") + "-" + hex.EncodeToString(buf)
}
