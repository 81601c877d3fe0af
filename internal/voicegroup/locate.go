package voicegroup

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// location identifies where a named voicegroup lives: either its own file
// (label empty) or a labeled section inside a monolithic file.
type location struct {
	filePath string
	label    string
	found    bool
}

func dirLastComponentIs(dirPath, name string) bool {
	return filepath.Base(filepath.Clean(dirPath)) == name
}

// findVoicegroup implements spec.md §4.3.3's search order.
func findVoicegroup(vgName string, disc *discovery) location {
	for _, dir := range disc.voicegroupDirs.paths {
		if p := filepath.Join(dir, vgName+".inc"); fileExists(p) {
			return location{filePath: p, found: true}
		}
		if p := filepath.Join(dir, vgName+".s"); fileExists(p) {
			return location{filePath: p, found: true}
		}
	}

	if loc, ok := findKeysplitOrDrumsetSuffixed(vgName, "_keysplit", "keysplits", disc); ok {
		return loc
	}
	if loc, ok := findKeysplitOrDrumsetSuffixed(vgName, "_drumset", "drumsets", disc); ok {
		return loc
	}

	for _, dir := range disc.voicegroupDirs.paths {
		if p := filepath.Join(dir, "vg_"+vgName+".inc"); fileExists(p) {
			return location{filePath: p, found: true}
		}
		if p := filepath.Join(dir, "vg_"+vgName+".s"); fileExists(p) {
			return location{filePath: p, found: true}
		}
	}

	searchLabel := vgName + "::"
	for _, mono := range disc.monolithicVGFiles.paths {
		if fileHasLabelAtLineStart(mono, searchLabel) {
			return location{filePath: mono, label: vgName, found: true}
		}
	}

	return location{}
}

// findKeysplitOrDrumsetSuffixed resolves names ending in "_keysplit" or
// "_drumset" by searching <dir>/<subdirName>/<base>.inc for every known
// voicegroup dir, then any dir whose own last path component is subdirName
// — never the parent file itself, which is what makes the suffix rule
// cycle-safe (spec.md §4.3.4 "prevent infinite recursion").
func findKeysplitOrDrumsetSuffixed(vgName, suffix, subdirName string, disc *discovery) (location, bool) {
	if !strings.HasSuffix(vgName, suffix) || len(vgName) == len(suffix) {
		return location{}, false
	}
	base := strings.TrimSuffix(vgName, suffix)

	for _, dir := range disc.voicegroupDirs.paths {
		for _, ext := range []string{".inc", ".s"} {
			if p := filepath.Join(dir, subdirName, base+ext); fileExists(p) {
				return location{filePath: p, found: true}, true
			}
		}
	}
	for _, dir := range disc.voicegroupDirs.paths {
		if !dirLastComponentIs(dir, subdirName) {
			continue
		}
		for _, ext := range []string{".inc", ".s"} {
			if p := filepath.Join(dir, base+ext); fileExists(p) {
				return location{filePath: p, found: true}, true
			}
		}
	}
	return location{}, false
}

func fileHasLabelAtLineStart(filePath, label string) bool {
	f, err := os.Open(filePath)
	if err != nil {
		return false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1024), maxLineLen)
	for sc.Scan() {
		trimmed := ltrim(stripComment(sc.Text()))
		if strings.HasPrefix(trimmed, label) {
			return true
		}
	}
	return false
}
