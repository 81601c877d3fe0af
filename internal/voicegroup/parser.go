package voicegroup

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/retrosound/m4a-synth/internal/waveasset"
)

// parseContext threads the per-load symbol maps, discovery result, sample
// cache, and recursion guard through voicegroup and sub-voicegroup parsing.
type parseContext struct {
	projectRoot string
	disc        *discovery
	dsMap       symbolMap
	pwMap       symbolMap
	ksMap       keySplitMap
	cache       map[string]*waveasset.WaveData
	cfg         *LoaderConfig
	visiting    map[string]bool // cycle guard: "filePath#label" currently on the recursion stack
	depth       int             // 0 = top-level voicegroup, >0 = inside a sub-voicegroup
}

// macroHandler parses one macro's argument list into a Voice. It returns
// ok=false if the line doesn't match the expected field count.
type macroHandler func(ctx *parseContext, args string) (Voice, bool)

// macroEntry pairs a macro name prefix (including the trailing space before
// its argument list) with its handler. Longer/more-specific prefixes that
// share a stem with a shorter one (e.g. "_no_resample"/"_alt" variants) must
// be listed first since dispatch is a linear prefix scan.
type macroEntry struct {
	prefix  string
	handler macroHandler
}

var macroTable = []macroEntry{
	{"voice_directsound_no_resample ", parseDirectSoundNoResample},
	{"voice_directsound_alt ", parseDirectSoundAlt},
	{"voice_directsound ", parseDirectSound},
	{"voice_square_1_alt ", parseSquare1Alt},
	{"voice_square_1 ", parseSquare1},
	{"voice_square_2_alt ", parseSquare2Alt},
	{"voice_square_2 ", parseSquare2},
	{"voice_programmable_wave_alt ", parseProgWaveAlt},
	{"voice_programmable_wave ", parseProgWave},
	{"voice_noise_alt ", parseNoiseAlt},
	{"voice_noise ", parseNoise},
	{"voice_keysplit_all ", parseKeySplitAll},
	{"voice_keysplit ", parseKeySplit},
	{"cry_reverse ", parseCryReverse},
	{"cry ", parseCry},
}

func splitFields(args string, n int) ([]string, bool) {
	fields := strings.SplitN(args, ",", n)
	if len(fields) != n {
		return nil, false
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields, true
}

func atoiField(s string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	return v, err == nil
}

func adsrFields(fields []string, off int) (attack, decay, sustain, release uint8, ok bool) {
	vals := [4]int{}
	for i := 0; i < 4; i++ {
		v, good := atoiField(fields[off+i])
		if !good {
			return 0, 0, 0, 0, false
		}
		vals[i] = v
	}
	return uint8(vals[0]), uint8(vals[1]), uint8(vals[2]), uint8(vals[3]), true
}

func parseDirectSoundCommon(kind Kind, fixed bool) macroHandler {
	return func(ctx *parseContext, args string) (Voice, bool) {
		f, ok := splitFields(args, 7)
		if !ok {
			return Voice{}, false
		}
		key, ok1 := atoiField(f[0])
		pan, ok2 := atoiField(f[1])
		a, d, s, r, ok3 := adsrFields(f, 3)
		if !ok1 || !ok2 || !ok3 {
			return Voice{}, false
		}
		v := Voice{Kind: kind, Key: uint8(key), Attack: a, Decay: d, Sustain: s, Release: r, Fixed: fixed}
		if pan != 0 {
			v.PanSweep = 0x80 | uint8(pan)
		}
		v.Wav = ctx.resolveAndLoadSample(f[2])
		return v, true
	}
}

var parseDirectSound = parseDirectSoundCommon(KindDirectSound, false)
var parseDirectSoundAlt = parseDirectSoundCommon(KindDirectSoundAlt, false)
var parseDirectSoundNoResample = parseDirectSoundCommon(KindDirectSoundNoResample, true)

func parseSquare1Common(kind Kind) macroHandler {
	return func(ctx *parseContext, args string) (Voice, bool) {
		f, ok := splitFields(args, 8)
		if !ok {
			return Voice{}, false
		}
		key, ok1 := atoiField(f[0])
		_, ok2 := atoiField(f[1]) // pan, unused for squares
		sweep, ok3 := atoiField(f[2])
		duty, ok4 := atoiField(f[3])
		a, d, s, r, ok5 := adsrFields(f, 4)
		if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
			return Voice{}, false
		}
		return Voice{
			Kind: kind, Key: uint8(key), PanSweep: uint8(sweep),
			Duty: uint8(duty & 0x03), Attack: a & 0x07, Decay: d & 0x07, Sustain: s & 0x0F, Release: r & 0x07,
		}, true
	}
}

var parseSquare1 = parseSquare1Common(KindSquare1)
var parseSquare1Alt = parseSquare1Common(KindSquare1Alt)

func parseSquare2Common(kind Kind) macroHandler {
	return func(ctx *parseContext, args string) (Voice, bool) {
		f, ok := splitFields(args, 7)
		if !ok {
			return Voice{}, false
		}
		key, ok1 := atoiField(f[0])
		_, ok2 := atoiField(f[1])
		duty, ok3 := atoiField(f[2])
		a, d, s, r, ok4 := adsrFields(f, 3)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return Voice{}, false
		}
		return Voice{
			Kind: kind, Key: uint8(key),
			Duty: uint8(duty & 0x03), Attack: a & 0x07, Decay: d & 0x07, Sustain: s & 0x0F, Release: r & 0x07,
		}, true
	}
}

var parseSquare2 = parseSquare2Common(KindSquare2)
var parseSquare2Alt = parseSquare2Common(KindSquare2Alt)

func parseProgWaveCommon(kind Kind) macroHandler {
	return func(ctx *parseContext, args string) (Voice, bool) {
		f, ok := splitFields(args, 7)
		if !ok {
			return Voice{}, false
		}
		key, ok1 := atoiField(f[0])
		_, ok2 := atoiField(f[1])
		a, d, s, r, ok3 := adsrFields(f, 3)
		if !ok1 || !ok2 || !ok3 {
			return Voice{}, false
		}
		return Voice{
			Kind: kind, Key: uint8(key),
			Attack: a & 0x07, Decay: d & 0x07, Sustain: s & 0x0F, Release: r & 0x07,
			WaveTable: ctx.resolveProgWave(f[2]),
		}, true
	}
}

var parseProgWave = parseProgWaveCommon(KindProgrammableWave)
var parseProgWaveAlt = parseProgWaveCommon(KindProgrammableWaveAlt)

func parseNoiseCommon(kind Kind) macroHandler {
	return func(ctx *parseContext, args string) (Voice, bool) {
		f, ok := splitFields(args, 7)
		if !ok {
			return Voice{}, false
		}
		key, ok1 := atoiField(f[0])
		_, ok2 := atoiField(f[1])
		period, ok3 := atoiField(f[2])
		a, d, s, r, ok4 := adsrFields(f, 3)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return Voice{}, false
		}
		return Voice{
			Kind: kind, Key: uint8(key), Period7: period&1 != 0,
			Attack: a & 0x07, Decay: d & 0x07, Sustain: s & 0x0F, Release: r & 0x07,
		}, true
	}
}

var parseNoise = parseNoiseCommon(KindNoise)
var parseNoiseAlt = parseNoiseCommon(KindNoiseAlt)

func parseKeySplitAll(ctx *parseContext, args string) (Voice, bool) {
	sym := strings.TrimSpace(args)
	if sym == "" {
		return Voice{}, false
	}
	if ctx.depth > 0 {
		ctx.cfg.logf("voice_keysplit_all: nested key-split/drum-kit rejected for %s", sym)
		return Voice{Kind: KindDrumKit}, true
	}
	sub := ctx.loadSubVoicegroup(sym)
	return Voice{Kind: KindDrumKit, SubGroup: sub}, true
}

func parseKeySplit(ctx *parseContext, args string) (Voice, bool) {
	f, ok := splitFields(args, 2)
	if !ok {
		return Voice{}, false
	}
	if ctx.depth > 0 {
		ctx.cfg.logf("voice_keysplit: nested key-split/drum-kit rejected for %s", f[0])
		return Voice{Kind: KindKeySplit}, true
	}
	sub := ctx.loadSubVoicegroup(f[0])
	v := Voice{Kind: KindKeySplit, SubGroup: sub}
	if def, ok := ctx.ksMap[f[1]]; ok {
		table := def.Table
		v.KeySplitTable = &table
	}
	return v, true
}

func parseCryCommon(kind Kind) macroHandler {
	return func(ctx *parseContext, args string) (Voice, bool) {
		sym := strings.TrimSpace(args)
		if sym == "" {
			return Voice{}, false
		}
		return Voice{
			Kind: kind, Key: 60, Attack: 0xFF, Decay: 0, Sustain: 0xFF, Release: 0,
			Wav: ctx.loadCrySample(sym),
		}, true
	}
}

var parseCry = parseCryCommon(KindCry)
var parseCryReverse = parseCryCommon(KindCryReverse)

// loadSubVoicegroup resolves and parses a sub-voicegroup referenced by a
// keysplit/drumkit voice, guarding against A->B->A cycles with an explicit
// visited set keyed by (file, label) (spec.md §9 "Cyclic voicegroup
// references").
func (ctx *parseContext) loadSubVoicegroup(vgSymbol string) *[VoiceCount]Voice {
	name := strings.TrimPrefix(vgSymbol, "voicegroup_")

	loc := findVoicegroup(name, ctx.disc)
	if !loc.found {
		ctx.cfg.logf("load_sub_voicegroup: cannot find sub-voicegroup %s", vgSymbol)
		return nil
	}

	key := loc.filePath + "#" + loc.label
	if ctx.visiting[key] {
		ctx.cfg.logf("load_sub_voicegroup: cyclic reference to %s, skipping", vgSymbol)
		return nil
	}
	ctx.visiting[key] = true
	defer delete(ctx.visiting, key)

	sub := &[VoiceCount]Voice{}
	subCtx := *ctx
	subCtx.depth = ctx.depth + 1
	startLabel := ""
	if loc.label != "" {
		startLabel = loc.label
	}
	if err := subCtx.parseVoicegroupFile(loc.filePath, startLabel, sub); err != nil {
		ctx.cfg.logf("load_sub_voicegroup: %s: %v", vgSymbol, err)
		return nil
	}
	return sub
}

// parseVoicegroupFile scans filePath line by line, dispatching matched
// macros into voices. When startLabel is non-empty the scan skips to the
// "<startLabel>::" line and stops at the next top-level label or a ".align"
// directive (monolithic file mode, spec.md §4.3.3).
func (ctx *parseContext) parseVoicegroupFile(filePath, startLabel string, voices *[VoiceCount]Voice) error {
	ctx.cfg.logf("parse_voicegroup_file: %s label=%q", filePath, startLabel)
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1024), maxLineLen)

	voiceIndex := 0
	inSection := startLabel == ""
	voicesInSection := 0
	searchLabel := startLabel + "::"

	for sc.Scan() && voiceIndex < VoiceCount {
		trimmed := trimLine(sc.Text())
		if trimmed == "" {
			continue
		}

		if startLabel != "" && !inSection {
			if strings.HasPrefix(trimmed, searchLabel) {
				inSection = true
			}
			continue
		}

		if startLabel != "" && inSection && voicesInSection > 0 {
			if idx := strings.Index(trimmed, "::"); idx > 0 && !strings.HasPrefix(trimmed, " ") {
				break
			}
			if strings.HasPrefix(trimmed, ".align") {
				break
			}
		}

		if strings.HasPrefix(trimmed, "voice_group ") {
			if f, ok := splitFields(trimmed[len("voice_group "):], 2); ok {
				if n, ok := atoiField(f[1]); ok && n > 0 && n < VoiceCount {
					voiceIndex = n
				}
			}
			continue
		}

		if matched := dispatchMacro(ctx, trimmed, voices, voiceIndex); matched {
			voiceIndex++
			voicesInSection++
		}
	}
	ctx.cfg.logf("parse_voicegroup_file: done, voiceIndex=%d", voiceIndex)
	return sc.Err()
}

// macros is macroTable, installed by init. Handlers reach dispatchMacro again
// through sub-voicegroup loading, so dispatchMacro can't name macroTable
// directly without an initialization cycle.
var macros []macroEntry

func init() { macros = macroTable }

func dispatchMacro(ctx *parseContext, trimmed string, voices *[VoiceCount]Voice, voiceIndex int) bool {
	for _, entry := range macros {
		if !strings.HasPrefix(trimmed, entry.prefix) {
			continue
		}
		voice, ok := entry.handler(ctx, trimmed[len(entry.prefix):])
		if !ok {
			return false
		}
		voices[voiceIndex] = voice
		return true
	}
	return false
}
