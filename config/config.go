// Package config loads the agent manifest that describes deployment metadata
// and declared environment variables. The manifest is optional: when no file
// is found at any candidate location a built-in default is used, so loading
// never fails.
package config

import (
	"net/url"
	"os"
	"path/filepath"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rivalscope/rivalscope/logging"
)

// FileName is the manifest file searched for at each candidate location.
const FileName = "agent_config.json"

// Config is the typed agent manifest.
type Config struct {
	Name                 string       `koanf:"name" json:"name"`
	Description          string       `koanf:"description" json:"description"`
	Version              string       `koanf:"version" json:"version"`
	Deployment           Deployment   `koanf:"deployment" json:"deployment"`
	EnvironmentVariables []EnvVar     `koanf:"environment_variables" json:"environment_variables"`
	Model                ModelConfig  `koanf:"model" json:"model,omitempty"`
	MCP                  MCPConfig    `koanf:"mcp" json:"mcp,omitempty"`
	LogLevel             string       `koanf:"log_level" json:"log_level,omitempty"`
}

// Deployment describes how the agent server is exposed.
type Deployment struct {
	URL             string `koanf:"url" json:"url"`
	Expose          bool   `koanf:"expose" json:"expose"`
	ProtocolVersion string `koanf:"protocol_version" json:"protocol_version"`
}

// EnvVar declares an environment variable the agent recognizes.
type EnvVar struct {
	Key         string `koanf:"key" json:"key"`
	Description string `koanf:"description" json:"description"`
	Required    bool   `koanf:"required" json:"required"`
}

// ModelConfig optionally pins a model provider instead of the
// environment-based selection.
type ModelConfig struct {
	Provider string `koanf:"provider" json:"provider,omitempty"` // "openai", "openrouter" or "anthropic"
	ID       string `koanf:"id" json:"id,omitempty"`
}

// MCPConfig configures the external tool-server connector. Commands is empty
// by default; operators add server launch commands here.
type MCPConfig struct {
	Commands            []string `koanf:"commands" json:"commands,omitempty"`
	TimeoutSeconds      int      `koanf:"timeout_seconds" json:"timeout_seconds,omitempty"`
	AllowPartialFailure bool     `koanf:"allow_partial_failure" json:"allow_partial_failure,omitempty"`
}

// Default returns the built-in manifest used when no file is found.
func Default() *Config {
	return &Config{
		Name:        "competitor-analysis-agent",
		Description: "AI Competitive Intelligence Agent",
		Version:     "1.0.0",
		Deployment: Deployment{
			URL:             "http://0.0.0.0:3773",
			Expose:          true,
			ProtocolVersion: "1.0.0",
		},
		EnvironmentVariables: []EnvVar{
			{Key: "OPENAI_API_KEY", Description: "OpenAI API key", Required: false},
			{Key: "OPENROUTER_API_KEY", Description: "OpenRouter API key", Required: false},
			{Key: "FIRECRAWL_API_KEY", Description: "Firecrawl API key", Required: true},
			{Key: "MEM0_API_KEY", Description: "Mem0 API key for memory", Required: false},
		},
		MCP: MCPConfig{
			TimeoutSeconds:      30,
			AllowPartialFailure: true,
		},
	}
}

// CandidatePaths returns the manifest search order: current working
// directory, the executable's directory, then its parent.
func CandidatePaths() []string {
	paths := []string{FileName}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, FileName),
			filepath.Join(filepath.Dir(exeDir), FileName),
		)
	}

	return paths
}

// Load returns the manifest from the first candidate location that exists and
// parses, falling back to Default. Unparsable files are logged as warnings
// and skipped. Load never fails.
func Load(logger logging.Logger) *Config {
	return LoadFrom(logger, CandidatePaths()...)
}

// LoadFrom is Load with an explicit path list. An explicit path that exists
// but fails to parse is skipped like any other candidate.
func LoadFrom(logger logging.Logger, paths ...string) *Config {
	logger = logging.OrNoOp(logger)

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}

		cfg, err := parseFile(path)
		if err != nil {
			logger.Warn("config.parse.skip", "path", path, "error", err.Error())
			continue
		}

		logger.Info("config.loaded", "path", path)
		return cfg
	}

	logger.Info("config.default", "reason", "no manifest found")
	return Default()
}

func parseFile(path string) (*Config, error) {
	k := koanf.New(".")

	// Layer the file over the built-in defaults so partial manifests keep
	// sensible values for the sections they omit.
	if err := k.Load(structs.Provider(*Default(), "koanf"), nil); err != nil {
		return nil, err
	}
	if err := k.Load(file.Provider(path), kjson.Parser()); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	if c.Deployment.URL == "" {
		c.Deployment.URL = Default().Deployment.URL
	}
	if c.MCP.TimeoutSeconds <= 0 {
		c.MCP.TimeoutSeconds = 30
	}
}

// ListenAddr derives the host:port bind address from the deployment URL.
func (c *Config) ListenAddr() string {
	u, err := url.Parse(c.Deployment.URL)
	if err != nil || u.Host == "" {
		return "0.0.0.0:3773"
	}
	return u.Host
}
