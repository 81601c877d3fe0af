package voicegroup

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

const maxDiscoveredPaths = 32

// pathList is a deduplicated, capacity-bounded list of discovered paths,
// matching the reference's fixed-size PathList (spec.md §4.3.1).
type pathList struct {
	paths []string
}

func (l *pathList) add(path string) {
	if len(l.paths) >= maxDiscoveredPaths {
		return
	}
	for _, p := range l.paths {
		if p == path {
			return
		}
	}
	l.paths = append(l.paths, path)
}

// discovery holds the six deduplicated path lists populated by discoverProject.
type discovery struct {
	directSoundDataFiles pathList
	progWaveDataFiles    pathList
	keySplitTableFiles   pathList
	voicegroupDirs       pathList
	monolithicVGFiles    pathList
	wavSampleDirs        pathList
}

var voiceMacroNeedles = []string{
	"voice_directsound", "voice_square", "voice_programmable_wave",
	"voice_noise", "voice_keysplit", "voice_group",
}

func isDir(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}

func hasExtCI(name, ext string) bool {
	return strings.EqualFold(filepath.Ext(name), ext)
}

func dirHasFilesWithExt(dirPath, ext string) bool {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if hasExtCI(e.Name(), ext) {
			return true
		}
	}
	return false
}

// dirHasVoiceMacros checks the first few .inc/.s files in a directory for a
// voice macro keyword within their first 50 lines (spec.md §4.3.1 rule 3a).
func dirHasVoiceMacros(dirPath string) bool {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return false
	}
	checked := 0
	for _, e := range entries {
		if checked >= 5 {
			break
		}
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !hasExtCI(e.Name(), ".inc") && !hasExtCI(e.Name(), ".s") {
			continue
		}
		if fileMentionsAny(filepath.Join(dirPath, e.Name()), voiceMacroNeedles, 50) {
			return true
		}
		checked++
	}
	return false
}

func fileMentionsAny(path string, needles []string, maxLines int) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1024), maxLineLen)
	for n := 0; sc.Scan() && n < maxLines; n++ {
		line := sc.Text()
		for _, needle := range needles {
			if strings.Contains(line, needle) {
				return true
			}
		}
	}
	return false
}

// isMonolithicVoicegroupFile classifies a file as holding multiple labeled
// voicegroups (spec.md §4.3.1 rule 4): >=2 top-level labels, any voice
// macro, and more voice macros than .include directives.
func isMonolithicVoicegroupFile(filePath string) bool {
	f, err := os.Open(filePath)
	if err != nil {
		return false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1024), maxLineLen)
	labelCount, macroCount, includeCount, lineCount := 0, 0, 0, 0
	for sc.Scan() && lineCount < 500 {
		lineCount++
		trimmed := trimLine(sc.Text())
		if idx := strings.Index(trimmed, "::"); idx > 0 {
			labelCount++
		}
		for _, needle := range voiceMacroNeedles {
			if strings.Contains(trimmed, needle) {
				macroCount++
				break
			}
		}
		if strings.Contains(trimmed, ".include") {
			includeCount++
		}
	}
	return labelCount >= 2 && macroCount > 0 && macroCount > includeCount
}

// scanDirsRecursive visits basePath and its subdirectories up to maxDepth
// levels, invoking visit on every directory encountered.
func scanDirsRecursive(basePath string, depth, maxDepth int, visit func(string)) {
	visit(basePath)
	if depth >= maxDepth {
		return
	}
	entries, err := os.ReadDir(basePath)
	if err != nil {
		return
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		sub := filepath.Join(basePath, e.Name())
		if isDir(sub) {
			scanDirsRecursive(sub, depth+1, maxDepth, visit)
		}
	}
}

// discoverProject populates a discovery from a project root, applying
// config overrides first and falling back to the standard pokeemerald/
// pokefirered layout (spec.md §4.3.1).
func discoverProject(projectRoot string, cfg *LoaderConfig) *discovery {
	disc := &discovery{}
	soundDir := filepath.Join(projectRoot, "sound")
	cfg.logf("discover_project: soundDir=%s exists=%v", soundDir, isDir(soundDir))

	if cfg != nil {
		for _, p := range clampPaths(cfg.SoundDataPaths) {
			full := filepath.Join(projectRoot, p)
			if fileExists(full) {
				disc.directSoundDataFiles.add(full)
			}
		}
		for _, p := range clampPaths(cfg.VoicegroupPaths) {
			full := filepath.Join(projectRoot, p)
			if isDir(full) {
				disc.voicegroupDirs.add(full)
				entries, _ := os.ReadDir(full)
				for _, e := range entries {
					if hasExtCI(e.Name(), ".inc") || hasExtCI(e.Name(), ".s") {
						fp := filepath.Join(full, e.Name())
						if isMonolithicVoicegroupFile(fp) {
							disc.monolithicVGFiles.add(fp)
						}
					}
				}
			} else if fileExists(full) && isMonolithicVoicegroupFile(full) {
				disc.monolithicVGFiles.add(full)
			}
		}
		for _, p := range clampPaths(cfg.SampleDirs) {
			full := filepath.Join(projectRoot, p)
			if isDir(full) {
				disc.wavSampleDirs.add(full)
			}
		}
	}

	for _, rel := range []string{"sound/direct_sound_data.inc"} {
		if full := filepath.Join(projectRoot, rel); fileExists(full) {
			disc.directSoundDataFiles.add(full)
		}
	}
	if full := filepath.Join(projectRoot, "sound/programmable_wave_data.inc"); fileExists(full) {
		disc.progWaveDataFiles.add(full)
	}
	if full := filepath.Join(projectRoot, "sound/keysplit_tables.inc"); fileExists(full) {
		disc.keySplitTableFiles.add(full)
	}

	vgDir := filepath.Join(projectRoot, "sound/voicegroups")
	if isDir(vgDir) {
		disc.voicegroupDirs.add(vgDir)
		for _, sub := range []string{"keysplits", "drumsets"} {
			if subPath := filepath.Join(vgDir, sub); isDir(subPath) {
				disc.voicegroupDirs.add(subPath)
			}
		}
	}

	cfg.logf("discover_project: scanning for voicegroup and wav dirs under %s", soundDir)
	if isDir(soundDir) {
		scanDirsRecursive(soundDir, 0, 3, func(dirPath string) {
			if dirHasVoiceMacros(dirPath) {
				disc.voicegroupDirs.add(dirPath)
			}
			if dirHasFilesWithExt(dirPath, ".wav") {
				disc.wavSampleDirs.add(dirPath)
			}
		})
	}
	cfg.logf("discover_project: dir scan done, vgDirs=%d wavDirs=%d",
		len(disc.voicegroupDirs.paths), len(disc.wavSampleDirs.paths))

	monolithic := filepath.Join(projectRoot, "sound/voice_groups.inc")
	cfg.logf("discover_project: checking monolithic %s exists=%v", monolithic, fileExists(monolithic))
	if fileExists(monolithic) && isMonolithicVoicegroupFile(monolithic) {
		disc.monolithicVGFiles.add(monolithic)
	}

	return disc
}
