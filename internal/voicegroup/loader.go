package voicegroup

import (
	"fmt"

	"github.com/retrosound/m4a-synth/internal/loaderr"
	"github.com/retrosound/m4a-synth/internal/waveasset"
)

// Load resolves voicegroupName against a Game Freak-style project tree
// rooted at projectRoot, returning the fully-parsed 128-voice table along
// with every sample, programmable-wave table, and sub-voicegroup it and its
// key-split/drum-kit entries reference. cfg may be nil for pure
// auto-discovery with diagnostics disabled.
//
// A missing sample, programmable-wave table, or sub-voicegroup is not
// fatal: the affected Voice field is left nil/zero and a diagnostic is
// logged, matching the reference's "degrade to silence" policy (spec.md
// §4.3.5). A missing discovery root or an unresolvable voicegroupName
// itself is reported to the caller, wrapped in loaderr.NotFound; a failure
// to read the located voicegroup file is wrapped in loaderr.IoError.
func Load(projectRoot, voicegroupName string, cfg *LoaderConfig) (*LoadedVoiceGroup, error) {
	if !isDir(projectRoot) {
		return nil, loaderr.Wrap(loaderr.NotFound, fmt.Sprintf("project root %s", projectRoot), nil)
	}

	disc := discoverProject(projectRoot, cfg)
	cfg.logf("load: discovered dsFiles=%d pwFiles=%d ksFiles=%d vgDirs=%d monolithic=%d wavDirs=%d",
		len(disc.directSoundDataFiles.paths), len(disc.progWaveDataFiles.paths),
		len(disc.keySplitTableFiles.paths), len(disc.voicegroupDirs.paths),
		len(disc.monolithicVGFiles.paths), len(disc.wavSampleDirs.paths))

	loc := findVoicegroup(voicegroupName, disc)
	if !loc.found {
		return nil, loaderr.Wrap(loaderr.NotFound, fmt.Sprintf("voicegroup %q", voicegroupName), nil)
	}
	cfg.logf("load: resolved %q to %s label=%q", voicegroupName, loc.filePath, loc.label)

	ctx := &parseContext{
		projectRoot: projectRoot,
		disc:        disc,
		dsMap:       parseAllSymbols(disc.directSoundDataFiles.paths),
		pwMap:       parseAllSymbols(disc.progWaveDataFiles.paths),
		ksMap:       parseAllKeySplitTables(disc.keySplitTableFiles.paths),
		cache:       map[string]*waveasset.WaveData{},
		cfg:         cfg,
		visiting:    map[string]bool{},
	}
	ctx.visiting[loc.filePath+"#"+loc.label] = true

	vg := &LoadedVoiceGroup{}
	if err := ctx.parseVoicegroupFile(loc.filePath, loc.label, &vg.Voices); err != nil {
		return nil, loaderr.Wrap(loaderr.IoError, fmt.Sprintf("parse voicegroup %q", voicegroupName), err)
	}
	return vg, nil
}
