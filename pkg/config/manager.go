// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

// Package config provides a layered configuration manager on top of viper.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Layer represents a configuration layer in the hierarchy.
//
// Precedence (low → high): Defaults < Base < EnvironmentFile < OverrideFile < EnvironmentVariables
type Layer int

const (
	// DefaultsLayer holds hard-coded default values set via SetDefault.
	DefaultsLayer Layer = iota
	// BaseLayer is the committed base file, e.g. delivery.yaml.
	BaseLayer
	// EnvironmentFileLayer is the per-environment file, e.g. delivery.fat.yaml.
	EnvironmentFileLayer
	// OverrideFileLayer is a local, uncommitted override file.
	OverrideFileLayer
	// EnvironmentVariablesLayer represents environment variables (highest precedence).
	EnvironmentVariablesLayer
)

func (l Layer) String() string {
	switch l {
	case DefaultsLayer:
		return "defaults"
	case BaseLayer:
		return "base"
	case EnvironmentFileLayer:
		return "environment-file"
	case OverrideFileLayer:
		return "override-file"
	case EnvironmentVariablesLayer:
		return "environment-variables"
	default:
		return "unknown"
	}
}

// Options configures the Manager.
type Options struct {
	// WorkDir is the directory config files are resolved against.
	WorkDir string

	// ConfigBaseName is the file name without extension (default: "delivery").
	ConfigBaseName string

	// ConfigType is the configuration file type (yaml|yml|json). Default: "yaml".
	ConfigType string

	// EnvironmentName selects the environment file, e.g. "uat" → delivery.uat.yaml.
	EnvironmentName string

	// OverrideFilename is the optional override file name. Default: "<base>.override.yaml".
	OverrideFilename string

	// EnvPrefix is the prefix for environment variables. Empty means keys
	// map straight to upper-case names, db.host → DB_HOST.
	EnvPrefix string

	// EnableAutomaticEnv enables automatic env var binding with dot→underscore mapping.
	EnableAutomaticEnv bool
}

// DefaultOptions returns sane defaults.
func DefaultOptions() Options {
	return Options{
		WorkDir:            ".",
		ConfigBaseName:     "delivery",
		ConfigType:         "yaml",
		EnableAutomaticEnv: true,
	}
}

// Manager provides hierarchical configuration loading, merging and access.
// It uses an internal viper instance with controlled merge order.
type Manager struct {
	mu      sync.RWMutex
	v       *viper.Viper
	options Options
	loaded  map[Layer]string
}

// NewManager creates a new Manager with the given options.
func NewManager(options Options) *Manager {
	v := viper.New()
	if options.ConfigType == "" {
		options.ConfigType = "yaml"
	}
	if options.ConfigBaseName == "" {
		options.ConfigBaseName = "delivery"
	}
	if options.WorkDir == "" {
		options.WorkDir = "."
	}

	if options.EnableAutomaticEnv {
		if options.EnvPrefix != "" {
			v.SetEnvPrefix(options.EnvPrefix)
		}
		v.AutomaticEnv()
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	}

	return &Manager{v: v, options: options, loaded: make(map[Layer]string)}
}

// SetDefault sets a default value for the given key.
func (m *Manager) SetDefault(key string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.v.SetDefault(key, value)
}

// BindEnv binds key to the given environment variable names in addition to
// the automatic mapping. The first name that is set wins.
func (m *Manager) BindEnv(key string, envNames ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	args := append([]string{key}, envNames...)
	if err := m.v.BindEnv(args...); err != nil {
		return fmt.Errorf("bind env for %s: %w", key, err)
	}
	return nil
}

// Load loads and merges all configured layers in precedence order.
// Defaults are already in viper via SetDefault; the method merges files in order and finally applies env vars.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.mergeLayer(BaseLayer); err != nil {
		return fmt.Errorf("load base config: %w", err)
	}

	if m.options.EnvironmentName != "" {
		if err := m.mergeLayer(EnvironmentFileLayer); err != nil {
			return fmt.Errorf("load env config: %w", err)
		}
	}

	if err := m.mergeLayer(OverrideFileLayer); err != nil {
		return fmt.Errorf("load override config: %w", err)
	}

	// Environment variables are resolved lazily by viper on access.
	return nil
}

// Unmarshal binds all merged settings into the given struct pointer.
func (m *Manager) Unmarshal(target interface{}) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if target == nil {
		return errors.New("target must not be nil")
	}
	return m.v.Unmarshal(target)
}

// Get returns a value by key from merged configuration.
func (m *Manager) Get(key string) interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.Get(key)
}

// GetString returns the string form of key.
func (m *Manager) GetString(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.GetString(key)
}

// LoadedFiles reports which file backed each file layer during Load.
func (m *Manager) LoadedFiles() map[Layer]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[Layer]string, len(m.loaded))
	for k, v := range m.loaded {
		out[k] = v
	}
	return out
}

func (m *Manager) mergeLayer(layer Layer) error {
	path := m.filePathFor(layer)
	ok, err := m.mergeFileIfExists(path)
	if err != nil {
		return err
	}
	if ok {
		m.loaded[layer] = path
	}
	return nil
}

// filePathFor returns the file path for a given layer.
func (m *Manager) filePathFor(layer Layer) string {
	dir := m.options.WorkDir
	base := m.options.ConfigBaseName
	ext := m.normalizedConfigExt()
	switch layer {
	case BaseLayer:
		return filepath.Join(dir, fmt.Sprintf("%s.%s", base, ext))
	case EnvironmentFileLayer:
		env := strings.ToLower(m.options.EnvironmentName)
		return filepath.Join(dir, fmt.Sprintf("%s.%s.%s", base, env, ext))
	case OverrideFileLayer:
		name := m.options.OverrideFilename
		if name == "" {
			name = fmt.Sprintf("%s.override.%s", base, ext)
		}
		return filepath.Join(dir, name)
	default:
		return ""
	}
}

func (m *Manager) normalizedConfigExt() string {
	t := strings.ToLower(m.options.ConfigType)
	switch t {
	case "yml":
		return "yaml"
	case "yaml", "json", "toml":
		return t
	default:
		return "yaml"
	}
}

// mergeFileIfExists merges a configuration file if it exists. Missing files
// are ignored and reported as not merged.
func (m *Manager) mergeFileIfExists(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	// Parse into a scratch viper so a broken file leaves settings untouched.
	tmp := viper.New()
	tmp.SetConfigType(m.normalizedConfigExt())
	if err := tmp.ReadConfig(bytes.NewReader(content)); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, m.v.MergeConfigMap(tmp.AllSettings())
}
