package m4a

import (
	"github.com/retrosound/m4a-synth/internal/state"
	"github.com/retrosound/m4a-synth/internal/voicegroup"
)

// SaveState captures enough of the engine's session to restore it later
// with RestoreState: the project root and voicegroup name it was last
// loaded from, plus its byte-sized tuning knobs (spec.md §6.5). It does
// not capture per-track MIDI state (volume/pan/pitch/program); a host
// restoring a session is expected to replay those from its own sequencer
// state, not from this blob.
func (e *Engine) SaveState() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()

	return state.Encode(state.State{
		ProjectRoot:      e.projectRoot,
		VoicegroupName:   e.voicegroupName,
		ReverbAmount:     uint8(e.core.ReverbAmount()),
		MasterVolume:     e.core.MasterVolume(),
		SongMasterVolume: e.core.SongMasterVolume(),
		AnalogFilter:     e.core.AnalogFilter(),
		MaxPCMChannels:   uint8(e.core.MaxPCMChannels()),
	})
}

// RestoreState decodes blob and applies its tuning knobs to the engine. If
// blob names a project root and voicegroup, it is reloaded via cfg (which
// may be nil); a reload failure is returned to the caller but the tuning
// knobs are still applied, matching spec.md §7's "engine retains previous
// voice table on loader failure" policy.
func (e *Engine) RestoreState(blob []byte, cfg *voicegroup.LoaderConfig) error {
	s, err := state.Decode(blob)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.core.SetMasterVolume(s.MasterVolume)
	e.core.SetReverbAmount(int(s.ReverbAmount))
	e.core.SetSongVolume(s.SongMasterVolume)
	e.core.SetAnalogFilter(s.AnalogFilter)
	e.core.SetMaxPCMChannels(int(s.MaxPCMChannels))
	e.mu.Unlock()

	if s.ProjectRoot == "" || s.VoicegroupName == "" {
		return nil
	}
	return e.LoadVoiceGroup(s.ProjectRoot, s.VoicegroupName, cfg)
}
