package tokens

import (
	"fmt"

	"github.com/freeman-jiang/midigen/pkg/midifile"
)

// Tokenizer converts tracks into token sequences under a fixed
// quantization policy
type Tokenizer struct {
	vocab *Vocab
}

// NewTokenizer creates a Tokenizer for the given configuration
func NewTokenizer(cfg Config) (*Tokenizer, error) {
	vocab, err := NewVocab(cfg)
	if err != nil {
		return nil, err
	}
	return &Tokenizer{vocab: vocab}, nil
}

// Vocab returns the tokenizer's vocabulary
func (t *Tokenizer) Vocab() *Vocab {
	return t.vocab
}

// Tokenize walks a track in time order and emits its token sequence. Each
// gap between events becomes one or more TIME_SHIFT tokens (greedy
// largest-first); each note-on becomes a VELOCITY token immediately
// followed by its NOTE_ON — the velocity must precede the note so a
// detokenizer can bind it before instantiating the note; each note-off
// becomes a NOTE_OFF token. Fails with ErrOutOfRangeEvent if an event field
// is outside its legal domain.
func (t *Tokenizer) Tokenize(track midifile.Track) ([]Token, error) {
	var toks []Token
	var cursor uint32

	for i, ev := range track.Events {
		if ev.Pitch > 127 {
			return nil, &TokenError{Index: i, Err: fmt.Errorf("%w: pitch %d", ErrOutOfRangeEvent, ev.Pitch)}
		}
		if ev.Kind == midifile.NoteOn && ev.Velocity > 127 {
			return nil, &TokenError{Index: i, Err: fmt.Errorf("%w: velocity %d", ErrOutOfRangeEvent, ev.Velocity)}
		}
		if ev.Tick < cursor {
			return nil, &TokenError{Index: i, Err: fmt.Errorf("%w: tick %d precedes cursor %d", ErrOutOfRangeEvent, ev.Tick, cursor)}
		}

		for _, bucket := range t.vocab.SplitGap(int(ev.Tick - cursor)) {
			toks = append(toks, Token{Kind: KindTimeShift, Value: bucket})
		}
		cursor = ev.Tick

		switch ev.Kind {
		case midifile.NoteOn:
			toks = append(toks, Token{Kind: KindVelocity, Value: t.vocab.VelocityBucket(ev.Velocity)})
			toks = append(toks, Token{Kind: KindNoteOn, Value: int(ev.Pitch)})
		case midifile.NoteOff:
			toks = append(toks, Token{Kind: KindNoteOff, Value: int(ev.Pitch)})
		default:
			return nil, &TokenError{Index: i, Err: fmt.Errorf("%w: unknown event kind %d", ErrOutOfRangeEvent, ev.Kind)}
		}
	}
	return toks, nil
}

// TokenizeFile merges every track of a file into one time-ordered stream
// and tokenizes it
func (t *Tokenizer) TokenizeFile(f *midifile.File) ([]Token, error) {
	return t.Tokenize(f.MergedTrack())
}

// TokenizeIDs tokenizes a track and returns the sequence as integer IDs,
// bracketed by the START_SEQUENCE and END_SEQUENCE sentinels
func (t *Tokenizer) TokenizeIDs(track midifile.Track) ([]int, error) {
	toks, err := t.Tokenize(track)
	if err != nil {
		return nil, err
	}
	ids, err := t.vocab.IDs(toks)
	if err != nil {
		return nil, err
	}
	return t.vocab.WrapSequence(ids), nil
}
