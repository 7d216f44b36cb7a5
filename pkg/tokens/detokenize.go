package tokens

import (
	"sort"

	"github.com/freeman-jiang/midigen/pkg/midifile"
)

// Detokenizer converts token sequences back into tracks. Its input is
// treated as generative-model output: it never fails, and structurally odd
// sequences are repaired to a valid track instead of rejected. An orphan
// NOTE_OFF is ignored, a NOTE_ON without a preceding VELOCITY uses the
// configured default velocity, and every note still open at the end of the
// sequence is closed at the final cursor position.
type Detokenizer struct {
	vocab *Vocab
}

// NewDetokenizer creates a Detokenizer for the given configuration
func NewDetokenizer(cfg Config) (*Detokenizer, error) {
	vocab, err := NewVocab(cfg)
	if err != nil {
		return nil, err
	}
	return &Detokenizer{vocab: vocab}, nil
}

// Vocab returns the detokenizer's vocabulary
func (d *Detokenizer) Vocab() *Vocab {
	return d.vocab
}

// Detokenize reconstructs a track from a token sequence. The state machine
// carries a monotonic tick cursor, a pending-velocity register, and a
// per-pitch multiset of open notes so polyphonic retriggers of the same
// pitch keep their identity.
func (d *Detokenizer) Detokenize(toks []Token) midifile.Track {
	var track midifile.Track
	var cursor uint32
	pendingVelocity := -1
	open := map[uint8]int{}

	for _, tok := range toks {
		switch tok.Kind {
		case KindTimeShift:
			bucket := tok.Value
			if bucket < 1 {
				bucket = 1
			}
			if bucket > d.vocab.shiftBuckets {
				bucket = d.vocab.shiftBuckets
			}
			cursor += uint32(d.vocab.ShiftTicks(bucket))

		case KindVelocity:
			// A second VELOCITY before any NOTE_ON overwrites the register.
			pendingVelocity = tok.Value

		case KindNoteOn:
			if tok.Value < 0 || tok.Value > 127 {
				continue
			}
			velocity := d.vocab.cfg.DefaultVelocity
			if pendingVelocity >= 0 {
				velocity = d.vocab.BucketVelocity(pendingVelocity)
			}
			pendingVelocity = -1
			pitch := uint8(tok.Value)
			track.Events = append(track.Events, midifile.Event{
				Kind:     midifile.NoteOn,
				Pitch:    pitch,
				Velocity: velocity,
				Tick:     cursor,
			})
			open[pitch]++

		case KindNoteOff:
			if tok.Value < 0 || tok.Value > 127 {
				continue
			}
			pitch := uint8(tok.Value)
			if open[pitch] == 0 {
				// Orphan note-off: no-op, not an error.
				continue
			}
			open[pitch]--
			track.Events = append(track.Events, midifile.Event{
				Kind:  midifile.NoteOff,
				Pitch: pitch,
				Tick:  cursor,
			})

		case KindStart, KindEnd:
			// Sentinels may appear anywhere in model output; skip them.

		default:
		}
	}

	// Close everything still open so the track has no dangling notes.
	pitches := make([]int, 0, len(open))
	for pitch, count := range open {
		for ; count > 0; count-- {
			pitches = append(pitches, int(pitch))
		}
	}
	sort.Ints(pitches)
	for _, pitch := range pitches {
		track.Events = append(track.Events, midifile.Event{
			Kind:  midifile.NoteOff,
			Pitch: uint8(pitch),
			Tick:  cursor,
		})
	}
	return track
}

// DetokenizeIDs reconstructs a track from integer IDs, skipping any ID
// outside the vocabulary
func (d *Detokenizer) DetokenizeIDs(ids []int) midifile.Track {
	toks := make([]Token, 0, len(ids))
	for _, id := range ids {
		tok, err := d.vocab.Token(id)
		if err != nil {
			continue
		}
		toks = append(toks, tok)
	}
	return d.Detokenize(toks)
}
