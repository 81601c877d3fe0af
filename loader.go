package m4a

import "github.com/retrosound/m4a-synth/internal/voicegroup"

// LoadVoiceGroup resolves voicegroupName under projectRoot and returns the
// parsed voice table without installing it into any Engine — for hosts
// that want to inspect or cache a voicegroup before committing it to a
// live session. Most callers want the Engine method of the same name
// instead.
func LoadVoiceGroup(projectRoot, voicegroupName string, cfg *voicegroup.LoaderConfig) (*voicegroup.LoadedVoiceGroup, error) {
	return voicegroup.Load(projectRoot, voicegroupName, cfg)
}

// LoadLoaderConfigYAML reads a voicegroup.LoaderConfig from a YAML file of
// search-path overrides (spec.md §6.2).
func LoadLoaderConfigYAML(path string) (*voicegroup.LoaderConfig, error) {
	return voicegroup.LoadConfigYAML(path)
}
