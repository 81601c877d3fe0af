// Command m4a-play loads a voicegroup and auditions it live through the
// default audio device, driving an Engine from a YAML event script the
// same shape m4a-render consumes, but through internal/device instead of
// to a file. Useful for auditioning a voicegroup change without leaving
// the terminal.
package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/urfave/cli"
	"gopkg.in/yaml.v3"

	"github.com/retrosound/m4a-synth"
	"github.com/retrosound/m4a-synth/internal/device"
	"github.com/retrosound/m4a-synth/internal/voicegroup"
)

type eventScript struct {
	SampleRate int           `yaml:"sampleRate"`
	Frames     int           `yaml:"frames"`
	Events     []scriptEvent `yaml:"events"`
}

type scriptEvent struct {
	Frame    int     `yaml:"frame"`
	Track    int     `yaml:"track"`
	Type     string  `yaml:"type"`
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

func applyEvent(e *m4a.Engine, ev scriptEvent, log *charmlog.Logger) {
	switch ev.Type {
	case "noteon":
		log.Debugf("noteon track=%d key=%d vel=%d", ev.Track, ev.Key, ev.Velocity)
		e.NoteOn(ev.Track, ev.Key, ev.Velocity)
	case "noteoff":
		log.Debugf("noteoff track=%d key=%d", ev.Track, ev.Key)
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

// liveScriptSource adapts an eventScript into a device.Engine (+
// device.Finished), feeding events into the wrapped m4a.Engine as Process
// is pulled by the audio callback instead of pre-rendering the whole
// buffer up front like m4a-render does.
type liveScriptSource struct {
	engine *m4a.Engine
	script *eventScript
	log    *charmlog.Logger
	cursor int
	evIdx  int
}

// Process fires every script event due at or before the current cursor,
// then renders up to the next event (or end of script) in one or more
// engine.Process spans so each event takes effect at exactly its named
// frame, matching how cmd/m4a-render splits its offline render.
func (s *liveScriptSource) Process(outL, outR []float32) {
	frames := len(outL)
	remaining := frames
	off := 0
	for remaining > 0 {
		for s.evIdx < len(s.script.Events) && s.script.Events[s.evIdx].Frame <= s.cursor {
			applyEvent(s.engine, s.script.Events[s.evIdx], s.log)
			s.evIdx++
		}
		next := s.script.Frames
		if s.evIdx < len(s.script.Events) {
			next = s.script.Events[s.evIdx].Frame
		}
		span := next - s.cursor
		if span <= 0 || span > remaining {
			span = remaining
		}
		if s.cursor+span > s.script.Frames {
			span = s.script.Frames - s.cursor
			if span < 0 {
				span = 0
			}
		}
		if span == 0 {
			for i := 0; i < remaining; i++ {
				outL[off+i] = 0
				outR[off+i] = 0
			}
			break
		}
		s.engine.Process(outL[off:off+span], outR[off:off+span])
		s.cursor += span
		off += span
		remaining -= span
	}
}

func (s *liveScriptSource) Finished() bool {
	return s.cursor >= s.script.Frames
}

func run(c *cli.Context) error {
	log := charmlog.New(os.Stderr)
	if c.Bool("verbose") {
		log.SetLevel(charmlog.DebugLevel)
	}

	scriptPath := c.String("script")
	if scriptPath == "" {
		return fmt.Errorf("m4a-play: -script is required")
	}
	script, err := loadScript(scriptPath)
	if err != nil {
		return fmt.Errorf("m4a-play: load script: %w", err)
	}
	if script.SampleRate == 0 {
		script.SampleRate = 48000
	}

	e, err := m4a.NewEngine(script.SampleRate,
		m4a.WithMaxPCMChannels(c.Int("max-pcm-channels")),
		m4a.WithReverbAmount(c.Int("reverb")),
		m4a.WithAnalogFilter(c.Bool("analog-filter")),
	)
	if err != nil {
		return fmt.Errorf("m4a-play: %w", err)
	}

	if root, name := c.String("project"), c.String("voicegroup"); root != "" && name != "" {
		var cfg *voicegroup.LoaderConfig
		if cfgPath := c.String("loader-config"); cfgPath != "" {
			cfg, err = m4a.LoadLoaderConfigYAML(cfgPath)
			if err != nil {
				return fmt.Errorf("m4a-play: loader config: %w", err)
			}
		}
		log.Infof("loading voicegroup %q from %q", name, root)
		if err := e.LoadVoiceGroup(root, name, cfg); err != nil {
			return fmt.Errorf("m4a-play: load voicegroup: %w", err)
		}
	} else {
		log.Warn("no -project/-voicegroup given; every track will render silence")
	}

	src := &liveScriptSource{engine: e, script: script, log: log}
	dev, err := device.Open(script.SampleRate, src)
	if err != nil {
		return fmt.Errorf("m4a-play: open audio device: %w", err)
	}

	log.Infof("playing %d frames at %d Hz", script.Frames, script.SampleRate)
	dev.Play()
	for dev.IsPlaying() && !src.Finished() {
		time.Sleep(20 * time.Millisecond)
	}
	// Let the tail of the last buffer drain before closing the device.
	time.Sleep(100 * time.Millisecond)
	return dev.Close()
}

func main() {
	app := cli.NewApp()
	app.Name = "m4a-play"
	app.Usage = "audition an M4A engine event script through the live audio device"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "script", Usage: "path to a YAML event script (required)"},
		cli.StringFlag{Name: "project", Usage: "project root to load a voicegroup from"},
		cli.StringFlag{Name: "voicegroup", Usage: "voicegroup name to load"},
		cli.StringFlag{Name: "loader-config", Usage: "optional YAML LoaderConfig path"},
		cli.IntFlag{Name: "max-pcm-channels", Value: 5, Usage: "PCM channel budget (1-12)"},
		cli.IntFlag{Name: "reverb", Value: 0, Usage: "initial reverb wetness (0-127)"},
		cli.BoolFlag{Name: "analog-filter", Usage: "enable the GBA output low-pass filter"},
		cli.BoolFlag{Name: "verbose", Usage: "log each note event as it fires"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
