package engine

import "github.com/retrosound/m4a-synth/internal/pcmchan"

// allocatePCMChannel picks a channel for a new note of the given priority
// from track trackIndex, matching allocate_pcm_channel: a free channel
// wins immediately; otherwise the lowest-priority releasing channel wins
// over any active one; only active channels are subject to the
// priority >= incumbent check.
func (e *Engine) allocatePCMChannel(priority uint8, trackIndex int) *pcmchan.Channel {
	var best *pcmchan.Channel
	bestPriority := priority
	bestTrackIndex := trackIndex
	bestIsStopping := false

	for i := 0; i < e.maxPCMChannels; i++ {
		ch := &e.pcm[i]

		if !ch.Active() {
			return ch
		}

		if ch.Status&pcmchan.Stop != 0 {
			switch {
			case !bestIsStopping:
				bestIsStopping = true
				bestPriority = ch.Priority
				bestTrackIndex = ch.TrackIndex
				best = ch
			case ch.Priority < bestPriority:
				bestPriority = ch.Priority
				bestTrackIndex = ch.TrackIndex
				best = ch
			case ch.Priority == bestPriority && ch.TrackIndex >= bestTrackIndex:
				bestTrackIndex = ch.TrackIndex
				best = ch
			}
			continue
		}

		if !bestIsStopping {
			switch {
			case ch.Priority < bestPriority:
				bestPriority = ch.Priority
				bestTrackIndex = ch.TrackIndex
				best = ch
			case ch.Priority == bestPriority && ch.TrackIndex >= bestTrackIndex:
				bestTrackIndex = ch.TrackIndex
				best = ch
			}
		}
	}

	if best != nil && (bestIsStopping || priority >= bestPriority) {
		return best
	}
	return nil
}
