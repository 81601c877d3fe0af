package voicegroup

import (
	"path/filepath"
	"strings"

	"github.com/retrosound/m4a-synth/internal/waveasset"
)

// candidateWavPath derives the absolute .wav path a .bin sample reference
// would resolve to, used both as the load target and the dedup cache key
// (spec.md §4.3.4 "sample deduplication").
func candidateWavPath(projectRoot, relativePath string) string {
	rel := relativePath
	if strings.HasSuffix(strings.ToLower(rel), ".bin") {
		rel = rel[:len(rel)-4] + ".wav"
	}
	return filepath.Join(projectRoot, rel)
}

// loadDirectSoundSample prefers a sibling .wav (richer metadata: loop
// points, MIDI tuning) over the raw .bin the symbol map points at,
// matching load_wave_data_from_wav's fallback order.
func loadDirectSoundSample(projectRoot, relativePath string) (*waveasset.WaveData, error) {
	if wd, err := waveasset.Load(candidateWavPath(projectRoot, relativePath)); err == nil {
		return wd, nil
	}
	return waveasset.Load(filepath.Join(projectRoot, relativePath))
}

// resolveAndLoadSample looks up symbol in the direct_sound_data symbol map
// first, falling back to a same-named .wav in any discovered sample
// directory. Cache hits skip the filesystem entirely. A nil return means
// the voice plays silently (spec.md §4.3.5).
func (ctx *parseContext) resolveAndLoadSample(symbol string) *waveasset.WaveData {
	if relPath, ok := ctx.dsMap[symbol]; ok {
		cacheKey := candidateWavPath(ctx.projectRoot, relPath)
		if cached, ok := ctx.cache[cacheKey]; ok {
			return cached
		}
		wd, err := loadDirectSoundSample(ctx.projectRoot, relPath)
		if err == nil {
			ctx.cache[cacheKey] = wd
			return wd
		}
		ctx.cfg.logf("resolve_and_load_sample: %s (symbol %s): %v", relPath, symbol, err)
	}

	for _, dir := range ctx.disc.wavSampleDirs.paths {
		wavPath := filepath.Join(dir, symbol+".wav")
		if cached, ok := ctx.cache[wavPath]; ok {
			return cached
		}
		if wd, err := waveasset.Load(wavPath); err == nil {
			ctx.cache[wavPath] = wd
			return wd
		}
	}
	return nil
}

// loadCrySample mirrors the reference's cry/cry_reverse path: a direct .bin
// load with no .wav preference and no dedup cache (the reference's
// load_wave_data call bypasses wave_cache entirely for these voices).
func (ctx *parseContext) loadCrySample(symbol string) *waveasset.WaveData {
	relPath, ok := ctx.dsMap[symbol]
	if !ok {
		return nil
	}
	wd, err := waveasset.Load(filepath.Join(ctx.projectRoot, relPath))
	if err != nil {
		ctx.cfg.logf("load_cry_sample: %s (symbol %s): %v", relPath, symbol, err)
		return nil
	}
	return wd
}

// resolveProgWave loads a programmable-wave table referenced by symbol.
func (ctx *parseContext) resolveProgWave(symbol string) []int8 {
	relPath, ok := ctx.pwMap[symbol]
	if !ok {
		return nil
	}
	table, err := waveasset.LoadProgWaveTable(filepath.Join(ctx.projectRoot, relPath))
	if err != nil {
		ctx.cfg.logf("resolve_prog_wave: %s (symbol %s): %v", relPath, symbol, err)
		return nil
	}
	return table
}
