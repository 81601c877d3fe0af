package voicegroup

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// symbolMap maps a .incbin label to the relative sample/wave path it binds
// (spec.md §4.3.2).
type symbolMap map[string]string

func (m symbolMap) parseFile(filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("voicegroup: cannot open %s: %w", filePath, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1024), maxLineLen)
	currentSymbol := ""
	for sc.Scan() {
		trimmed := trimLine(sc.Text())
		if idx := strings.Index(trimmed, "::"); idx > 0 {
			currentSymbol = trimmed[:idx]
			continue
		}
		if currentSymbol != "" && strings.Contains(trimmed, ".incbin") {
			if q1 := strings.IndexByte(trimmed, '"'); q1 >= 0 {
				if q2 := strings.IndexByte(trimmed[q1+1:], '"'); q2 >= 0 {
					m[currentSymbol] = trimmed[q1+1 : q1+1+q2]
				}
			}
			currentSymbol = ""
		}
	}
	return nil
}

func parseAllSymbols(files []string) symbolMap {
	m := symbolMap{}
	for _, f := range files {
		_ = m.parseFile(f) // a single unreadable file must not abort the rest of discovery
	}
	return m
}

// keySplitMap maps a table name to its parsed KeySplitDef (spec.md §4.3.2).
type keySplitMap map[string]*KeySplitDef

func parseAllKeySplitTables(files []string) keySplitMap {
	m := keySplitMap{}
	for _, f := range files {
		parseKeySplitTableFile(f, m)
	}
	return m
}

// parseKeySplitTableFile recognises the two surface syntaxes described in
// spec.md §4.3.2: pokeemerald's `keysplit name, startNote` / `split idx,
// endNote` macro form, and pokefirered's raw `.set Name, . - startNote` /
// `.byte ...` per-key form.
func parseKeySplitTableFile(filePath string, m keySplitMap) {
	f, err := os.Open(filePath)
	if err != nil {
		return
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1024), maxLineLen)
	var current *KeySplitDef
	lastNote := 0

	for sc.Scan() {
		trimmed := trimLine(sc.Text())
		switch {
		case strings.HasPrefix(trimmed, "keysplit "):
			name, startNote, ok := parseNameAndInt(trimmed[len("keysplit "):])
			if !ok {
				continue
			}
			current = &KeySplitDef{Name: "keysplit_" + name, MaxNote: 0}
			m[current.Name] = current
			lastNote = startNote

		case strings.HasPrefix(trimmed, "split ") && current != nil:
			idx, endNote, ok := parseTwoInts(trimmed[len("split "):])
			if !ok {
				continue
			}
			for n := lastNote; n < endNote && n < 128; n++ {
				current.Table[n] = uint8(idx)
			}
			lastNote = endNote
			if endNote > current.MaxNote {
				current.MaxNote = endNote
			}

		case strings.HasPrefix(trimmed, ".set "):
			name, startNote, ok := parseSetDirective(trimmed[len(".set "):])
			if !ok {
				continue
			}
			current = &KeySplitDef{Name: name, MaxNote: 0}
			m[current.Name] = current
			lastNote = startNote

		case strings.HasPrefix(trimmed, ".byte ") && current != nil:
			for _, field := range strings.Split(trimmed[len(".byte "):], ",") {
				v, err := strconv.ParseInt(strings.TrimSpace(field), 10, 16)
				if err != nil {
					break
				}
				if lastNote < 128 {
					current.Table[lastNote] = uint8(v)
					if lastNote > current.MaxNote {
						current.MaxNote = lastNote
					}
					lastNote++
				}
			}
		}
	}
}

// parseNameAndInt parses "name, N" pairs, trimming whitespace from name.
func parseNameAndInt(rest string) (name string, n int, ok bool) {
	parts := strings.SplitN(rest, ",", 2)
	if len(parts) != 2 {
		return "", 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", 0, false
	}
	return strings.TrimSpace(parts[0]), v, true
}

func parseTwoInts(rest string) (a, b int, ok bool) {
	parts := strings.SplitN(rest, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	av, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	bv, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return av, bv, true
}

// parseSetDirective parses pokefirered's ".set Name, . - startNote" form.
func parseSetDirective(rest string) (name string, startNote int, ok bool) {
	parts := strings.SplitN(rest, ",", 2)
	if len(parts) != 2 {
		return "", 0, false
	}
	name = strings.TrimSpace(parts[0])
	rhs := strings.TrimSpace(parts[1])
	rhs = strings.TrimPrefix(rhs, ".")
	rhs = strings.TrimSpace(rhs)
	rhs = strings.TrimPrefix(rhs, "-")
	v, err := strconv.Atoi(strings.TrimSpace(rhs))
	if err != nil {
		return "", 0, false
	}
	return name, v, true
}
