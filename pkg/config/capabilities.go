package config

import (
	_ "embed"
	"fmt"
	"maps"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/inercia/go-llm-stream/pkg/llm"
)

//go:embed capabilities.yaml
var capabilitiesYAML []byte

// capabilityFile is the on-disk form of the capability profiles
type capabilityFile struct {
	Version     string                                  `yaml:"version"`
	LastUpdated string                                  `yaml:"last_updated"`
	Backends    map[llm.Backend]map[string]modelProfile `yaml:"backends"`
}

type modelProfile struct {
	MaxTokens         int   `yaml:"max_tokens"`
	SupportsTools     bool  `yaml:"supports_tools"`
	SupportsThinking  bool  `yaml:"supports_thinking"`
	SupportsStreaming *bool `yaml:"supports_streaming"` // default: true
}

// Profiles holds the capability profiles of known models. Lookups are exact
// matches on backend and model name; unknown models fall back to the factory's
// built-in rules.
type Profiles struct {
	mu     sync.RWMutex
	models map[llm.Backend]map[string]llm.ModelInfo
}

var (
	embedded     *Profiles
	embeddedErr  error
	embeddedOnce sync.Once
)

// DefaultProfiles returns the embedded capability profiles
func DefaultProfiles() (*Profiles, error) {
	embeddedOnce.Do(func() {
		embedded, embeddedErr = ParseProfiles(capabilitiesYAML)
	})
	if embeddedErr != nil {
		return nil, embeddedErr
	}
	return embedded.clone(), nil
}

// ParseProfiles decodes capability profiles from YAML
func ParseProfiles(data []byte) (*Profiles, error) {
	var file capabilityFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal capabilities: %w", err)
	}

	p := &Profiles{models: make(map[llm.Backend]map[string]llm.ModelInfo)}
	for name, models := range file.Backends {
		backend, err := llm.ParseBackend(name.String())
		if err != nil {
			return nil, fmt.Errorf("capabilities: %w", err)
		}
		if p.models[backend] == nil {
			p.models[backend] = make(map[string]llm.ModelInfo, len(models))
		}
		for model, mp := range models {
			streaming := true
			if mp.SupportsStreaming != nil {
				streaming = *mp.SupportsStreaming
			}
			p.models[backend][model] = llm.ModelInfo{
				Name:              model,
				Backend:           backend,
				MaxTokens:         mp.MaxTokens,
				SupportsTools:     mp.SupportsTools,
				SupportsThinking:  mp.SupportsThinking,
				SupportsStreaming: streaming,
			}
		}
	}
	return p, nil
}

// LoadProfiles returns the embedded profiles overlaid with the ones in path.
// An empty path returns the embedded profiles.
func LoadProfiles(path string) (*Profiles, error) {
	p, err := DefaultProfiles()
	if err != nil || path == "" {
		return p, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capabilities %s: %w", path, err)
	}
	overrides, err := ParseProfiles(data)
	if err != nil {
		return nil, err
	}
	p.Merge(overrides)
	return p, nil
}

// Merge overlays other onto p, model by model
func (p *Profiles) Merge(other *Profiles) {
	other.mu.RLock()
	defer other.mu.RUnlock()
	p.mu.Lock()
	defer p.mu.Unlock()
	for backend, models := range other.models {
		if p.models[backend] == nil {
			p.models[backend] = make(map[string]llm.ModelInfo, len(models))
		}
		maps.Copy(p.models[backend], models)
	}
}

// Profile implements factory.ProfileSource
func (p *Profiles) Profile(backend llm.Backend, model string) (llm.ModelInfo, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	info, ok := p.models[backend][model]
	return info, ok
}

// Len returns the number of profiled models
func (p *Profiles) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, models := range p.models {
		n += len(models)
	}
	return n
}

func (p *Profiles) clone() *Profiles {
	c := &Profiles{models: make(map[llm.Backend]map[string]llm.ModelInfo, len(p.models))}
	p.mu.RLock()
	defer p.mu.RUnlock()
	for backend, models := range p.models {
		c.models[backend] = maps.Clone(models)
	}
	return c
}

// Profiles loads the capability profiles the configuration points at
func (c Config) Profiles() (*Profiles, error) {
	return LoadProfiles(c.CapabilitiesFile)
}
