// Command m4a-render drives an Engine offline from a small YAML event
// script and writes the rendered audio to disk, for headless rendering and
// regression snapshots without any live audio device.
package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/urfave/cli"
	"gopkg.in/yaml.v3"

	"github.com/retrosound/m4a-synth"
	"github.com/retrosound/m4a-synth/internal/voicegroup"
)

// eventScript is the on-disk shape of a -script file: a sample rate, a
// total frame count, and a list of MIDI-style events each tagged with the
// frame it fires on.
type eventScript struct {
	SampleRate int           `yaml:"sampleRate"`
	Frames     int           `yaml:"frames"`
	Events     []scriptEvent `yaml:"events"`
}

type scriptEvent struct {
	Frame    int     `yaml:"frame"`
	Track    int     `yaml:"track"`
	Type     string  `yaml:"type"` // noteon|noteoff|program|cc|pitchbend|tempo|songvolume|allnotesoff|allsoundoff
	Key      uint8   `yaml:"key,omitempty"`
	Velocity uint8   `yaml:"velocity,omitempty"`
	Program  uint8   `yaml:"program,omitempty"`
	CC       uint8   `yaml:"cc,omitempty"`
	Value    uint8   `yaml:"value,omitempty"`
	Bend     int16   `yaml:"bend,omitempty"`
	BPM      float64 `yaml:"bpm,omitempty"`
}

func loadScript(path string) (*eventScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s eventScript
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	sort.SliceStable(s.Events, func(i, j int) bool { return s.Events[i].Frame < s.Events[j].Frame })
	return &s, nil
}

func applyEvent(e *m4a.Engine, ev scriptEvent) {
	switch ev.Type {
	case "noteon":
		e.NoteOn(ev.Track, ev.Key, ev.Velocity)
	case "noteoff":
		e.NoteOff(ev.Track, ev.Key)
	case "program":
		e.ProgramChange(ev.Track, ev.Program)
	case "cc":
		e.CC(ev.Track, ev.CC, ev.Value)
	case "pitchbend":
		e.PitchBend(ev.Track, ev.Bend)
	case "tempo":
		e.SetTempoBPM(ev.BPM)
	case "songvolume":
		e.SetSongVolume(ev.Value)
	case "allnotesoff":
		e.AllNotesOff(ev.Track)
	case "allsoundoff":
		e.AllSoundOff()
	}
}

// renderScript renders script.Frames frames, splitting the render into
// segments at each distinct event frame so every event fires at exactly
// the sample it names.
func renderScript(e *m4a.Engine, script *eventScript) ([]float32, []float32) {
	outL := make([]float32, script.Frames)
	outR := make([]float32, script.Frames)

	cursor := 0
	i := 0
	for cursor < script.Frames {
		next := script.Frames
		for i < len(script.Events) && script.Events[i].Frame <= cursor {
			applyEvent(e, script.Events[i])
			i++
		}
		if i < len(script.Events) && script.Events[i].Frame < next {
			next = script.Events[i].Frame
		}
		if next > script.Frames {
			next = script.Frames
		}
		if next > cursor {
			e.Process(outL[cursor:next], outR[cursor:next])
		}
		cursor = next
	}
	return outL, outR
}

func run(c *cli.Context) error {
	scriptPath := c.String("script")
	if scriptPath == "" {
		return fmt.Errorf("m4a-render: -script is required")
	}
	script, err := loadScript(scriptPath)
	if err != nil {
		return fmt.Errorf("m4a-render: load script: %w", err)
	}
	if script.SampleRate == 0 {
		script.SampleRate = 44100
	}

	e, err := m4a.NewEngine(script.SampleRate,
		m4a.WithMaxPCMChannels(c.Int("max-pcm-channels")),
		m4a.WithReverbAmount(c.Int("reverb")),
		m4a.WithAnalogFilter(c.Bool("analog-filter")),
	)
	if err != nil {
		return fmt.Errorf("m4a-render: %w", err)
	}

	if root, name := c.String("project"), c.String("voicegroup"); root != "" && name != "" {
		var cfg *voicegroup.LoaderConfig
		if cfgPath := c.String("loader-config"); cfgPath != "" {
			cfg, err = m4a.LoadLoaderConfigYAML(cfgPath)
			if err != nil {
				return fmt.Errorf("m4a-render: loader config: %w", err)
			}
		}
		if err := e.LoadVoiceGroup(root, name, cfg); err != nil {
			return fmt.Errorf("m4a-render: load voicegroup: %w", err)
		}
	}

	outL, outR := renderScript(e, script)

	if out := c.String("out"); out != "" {
		raw := make([]byte, 0, len(outL)*8)
		for i := range outL {
			raw = append(raw, float32LEBytes(outL[i])...)
			raw = append(raw, float32LEBytes(outR[i])...)
		}
		if err := os.WriteFile(out, raw, 0o644); err != nil {
			return fmt.Errorf("m4a-render: write raw output: %w", err)
		}
	}

	if wavPath := c.String("wav"); wavPath != "" {
		interleaved := make([]float32, len(outL)*2)
		for i := range outL {
			interleaved[i*2] = outL[i]
			interleaved[i*2+1] = outR[i]
		}
		wav := m4a.EncodeWAVFloat32LE(interleaved, script.SampleRate, 2)
		if err := os.WriteFile(wavPath, wav, 0o644); err != nil {
			return fmt.Errorf("m4a-render: write debug wav: %w", err)
		}
	}

	fmt.Printf("rendered %d frames at %d Hz\n", script.Frames, script.SampleRate)
	return nil
}

func float32LEBytes(f float32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(f))
	return b[:]
}

func main() {
	app := cli.NewApp()
	app.Name = "m4a-render"
	app.Usage = "render an M4A engine event script offline"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "script", Usage: "path to a YAML event script (required)"},
		cli.StringFlag{Name: "project", Usage: "project root to load a voicegroup from"},
		cli.StringFlag{Name: "voicegroup", Usage: "voicegroup name to load"},
		cli.StringFlag{Name: "loader-config", Usage: "optional YAML LoaderConfig path"},
		cli.StringFlag{Name: "out", Usage: "path to write raw interleaved float32 LE PCM"},
		cli.StringFlag{Name: "wav", Usage: "path to also write a debug WAV file"},
		cli.IntFlag{Name: "max-pcm-channels", Value: 5, Usage: "PCM channel budget (1-12)"},
		cli.IntFlag{Name: "reverb", Value: 0, Usage: "initial reverb wetness (0-127)"},
		cli.BoolFlag{Name: "analog-filter", Usage: "enable the GBA output low-pass filter"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
