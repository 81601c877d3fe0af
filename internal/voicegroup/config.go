package voicegroup

import (
	"os"

	charmlog "github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/retrosound/m4a-synth/internal/loaderr"
)

const maxConfigPaths = 8

// LoaderConfig carries optional search-path overrides and a diagnostic
// logger. The zero value means "pure auto-discovery" (spec.md §4.3).
type LoaderConfig struct {
	SoundDataPaths  []string `yaml:"soundDataPaths"`
	VoicegroupPaths []string `yaml:"voicegroupPaths"`
	SampleDirs      []string `yaml:"sampleDirs"`

	// Logger receives loader diagnostics (discovery summary, symbol-map
	// sizes, sub-voicegroup recursion); nil disables logging entirely,
	// mirroring voicegroup_loader_set_log_path(NULL) in the reference.
	Logger *charmlog.Logger `yaml:"-"`
}

func (c *LoaderConfig) logf(format string, args ...any) {
	if c == nil || c.Logger == nil {
		return
	}
	c.Logger.Infof(format, args...)
}

func clampPaths(paths []string) []string {
	if len(paths) > maxConfigPaths {
		return paths[:maxConfigPaths]
	}
	return paths
}

// LoadConfigYAML reads a LoaderConfig from a YAML file (project-level search
// path overrides); the caller may still set Logger afterward since the YAML
// form carries no logging configuration.
func LoadConfigYAML(path string) (*LoaderConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, loaderr.Wrap(loaderr.IoError, "read loader config "+path, err)
	}
	var cfg LoaderConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, loaderr.Wrap(loaderr.FormatError, "parse loader config "+path, err)
	}
	return &cfg, nil
}
