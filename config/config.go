package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// ServerSettings covers the HTTP listener and logging.
type ServerSettings struct {
	Port     int    `json:"port"`
	LogLevel string `json:"logLevel"`
	// LogFile enables rotating file output when non-empty; stderr otherwise.
	LogFile string `json:"logFile,omitempty"`
}

// UpstreamSettings points at the remote object store.
type UpstreamSettings struct {
	BaseURL string `json:"baseUrl"`
	APIKey  string `json:"apiKey,omitempty"`
	// RangedReads declares whether the store honors Range requests. When
	// false the provider is wrapped in the whole-object fallback adapter.
	RangedReads bool `json:"rangedReads"`
	// MaxObjectBytes gates the whole-object fallback adapter.
	MaxObjectBytes int64 `json:"maxObjectBytes"`
}

// StreamingSettings tunes the relay core.
type StreamingSettings struct {
	ChunkSizeBytes          int64 `json:"chunkSizeBytes"`
	MetadataTTLSeconds      int   `json:"metadataTtlSeconds"`
	ChunkReadTimeoutSeconds int   `json:"chunkReadTimeoutSeconds"`
	LockTTLSeconds          int   `json:"lockTtlSeconds"`
	ReadAhead               bool  `json:"readAhead"`
	RateLimitPerMinute      int   `json:"rateLimitPerMinute"`
	RateLimitBurst          int   `json:"rateLimitBurst"`
}

// DatabaseSettings locates the library registry.
type DatabaseSettings struct {
	Path string `json:"path"`
}

// Settings is the persisted configuration document.
type Settings struct {
	Server    ServerSettings    `json:"server"`
	Upstream  UpstreamSettings  `json:"upstream"`
	Streaming StreamingSettings `json:"streaming"`
	Database  DatabaseSettings  `json:"database"`
}

// DefaultSettings returns the configuration used when no settings file
// exists yet.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{
			Port:     8080,
			LogLevel: "info",
		},
		Upstream: UpstreamSettings{
			BaseURL:        "https://www.googleapis.com/drive/v3",
			RangedReads:    true,
			MaxObjectBytes: 64 * 1024 * 1024,
		},
		Streaming: StreamingSettings{
			ChunkSizeBytes:          2 * 1024 * 1024,
			MetadataTTLSeconds:      300,
			ChunkReadTimeoutSeconds: 30,
			LockTTLSeconds:          15,
			ReadAhead:               false,
			RateLimitPerMinute:      120,
			RateLimitBurst:          20,
		},
		Database: DatabaseSettings{
			Path: "vidrelay.db",
		},
	}
}

// Manager loads and persists the JSON settings file. The filesystem is
// injectable so tests run against an in-memory fs.
type Manager struct {
	path string
	fs   afero.Fs

	mu     sync.RWMutex
	cached *Settings
}

// NewManager builds a manager over the real filesystem.
func NewManager(path string) *Manager {
	return NewManagerWithFs(path, afero.NewOsFs())
}

// NewManagerWithFs builds a manager over the provided filesystem.
func NewManagerWithFs(path string, fs afero.Fs) *Manager {
	return &Manager{path: path, fs: fs}
}

// Load returns the current settings, reading the file once and caching the
// result until Save. A missing file yields DefaultSettings without error.
func (m *Manager) Load() (Settings, error) {
	m.mu.RLock()
	if m.cached != nil {
		settings := *m.cached
		m.mu.RUnlock()
		return settings, nil
	}
	m.mu.RUnlock()

	exists, err := afero.Exists(m.fs, m.path)
	if err != nil {
		return Settings{}, fmt.Errorf("stat settings file: %w", err)
	}
	if !exists {
		settings := DefaultSettings()
		m.mu.Lock()
		m.cached = &settings
		m.mu.Unlock()
		return settings, nil
	}

	data, err := afero.ReadFile(m.fs, m.path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings file: %w", err)
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("parse settings file: %w", err)
	}

	m.mu.Lock()
	m.cached = &settings
	m.mu.Unlock()
	return settings, nil
}

// Save persists settings and refreshes the cache.
func (m *Manager) Save(settings Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	dir := filepath.Dir(m.path)
	if dir != "" && dir != "." {
		if err := m.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings directory: %w", err)
		}
	}
	if err := afero.WriteFile(m.fs, m.path, data, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	m.mu.Lock()
	m.cached = &settings
	m.mu.Unlock()
	return nil
}
