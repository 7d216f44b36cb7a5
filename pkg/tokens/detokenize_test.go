package tokens

import (
	"testing"

	"github.com/freeman-jiang/midigen/pkg/midifile"
)

func mustDetokenizer(t *testing.T, cfg Config) *Detokenizer {
	t.Helper()
	d, err := NewDetokenizer(cfg)
	if err != nil {
		t.Fatalf("NewDetokenizer() error = %v", err)
	}
	return d
}

func TestDetokenizeSingleNote(t *testing.T) {
	cfg := DefaultConfig()
	d := mustDetokenizer(t, cfg)
	bucket := d.Vocab().VelocityBucket(100)

	track := d.Detokenize([]Token{
		{Kind: KindVelocity, Value: bucket},
		{Kind: KindNoteOn, Value: 60},
		{Kind: KindTimeShift, Value: 4}, // 480 ticks
		{Kind: KindNoteOff, Value: 60},
	})

	want := []midifile.Event{
		{Kind: midifile.NoteOn, Pitch: 60, Velocity: d.Vocab().BucketVelocity(bucket), Tick: 0},
		{Kind: midifile.NoteOff, Pitch: 60, Tick: 480},
	}
	if len(track.Events) != len(want) {
		t.Fatalf("Detokenize() = %+v, want %+v", track.Events, want)
	}
	for i := range want {
		if track.Events[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, track.Events[i], want[i])
		}
	}
}

func TestDetokenizeOrphanNoteOff(t *testing.T) {
	d := mustDetokenizer(t, DefaultConfig())

	track := d.Detokenize([]Token{{Kind: KindNoteOff, Value: 64}})
	if len(track.Events) != 0 {
		t.Errorf("orphan NOTE_OFF produced %+v, want an empty track", track.Events)
	}
}

func TestDetokenizeMissingVelocity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultVelocity = 80
	d := mustDetokenizer(t, cfg)

	track := d.Detokenize([]Token{
		{Kind: KindNoteOn, Value: 60},
		{Kind: KindTimeShift, Value: 2},
		{Kind: KindNoteOff, Value: 60},
	})

	if len(track.Events) != 2 {
		t.Fatalf("Detokenize() produced %d events, want 2", len(track.Events))
	}
	if track.Events[0].Velocity != 80 {
		t.Errorf("velocity = %d, want the configured default 80", track.Events[0].Velocity)
	}
}

func TestDetokenizeClosesOpenNotes(t *testing.T) {
	d := mustDetokenizer(t, DefaultConfig())

	track := d.Detokenize([]Token{
		{Kind: KindVelocity, Value: 10},
		{Kind: KindNoteOn, Value: 60},
		{Kind: KindTimeShift, Value: 4},
		{Kind: KindVelocity, Value: 10},
		{Kind: KindNoteOn, Value: 64},
		{Kind: KindTimeShift, Value: 4},
		// Neither note is ever closed.
	})

	assertNoDanglingNotes(t, track)
	last := track.Events[len(track.Events)-1]
	if last.Tick != 960 {
		t.Errorf("synthesized NoteOff tick = %d, want the final cursor 960", last.Tick)
	}
}

func TestDetokenizePolyphonicRetrigger(t *testing.T) {
	d := mustDetokenizer(t, DefaultConfig())

	// Two overlapping instances of the same pitch: the multiset must keep
	// both identities alive.
	track := d.Detokenize([]Token{
		{Kind: KindVelocity, Value: 20},
		{Kind: KindNoteOn, Value: 60},
		{Kind: KindTimeShift, Value: 1},
		{Kind: KindVelocity, Value: 20},
		{Kind: KindNoteOn, Value: 60},
		{Kind: KindTimeShift, Value: 1},
		{Kind: KindNoteOff, Value: 60},
		{Kind: KindTimeShift, Value: 1},
		{Kind: KindNoteOff, Value: 60},
	})

	var ons, offs int
	for _, ev := range track.Events {
		switch ev.Kind {
		case midifile.NoteOn:
			ons++
		case midifile.NoteOff:
			offs++
		}
	}
	if ons != 2 || offs != 2 {
		t.Errorf("got %d note-ons and %d note-offs, want 2 and 2", ons, offs)
	}
	assertNoDanglingNotes(t, track)
}

func TestDetokenizeSkipsSentinels(t *testing.T) {
	d := mustDetokenizer(t, DefaultConfig())

	track := d.Detokenize([]Token{
		{Kind: KindStart},
		{Kind: KindVelocity, Value: 10},
		{Kind: KindNoteOn, Value: 60},
		{Kind: KindNoteOff, Value: 60},
		{Kind: KindEnd},
	})
	if len(track.Events) != 2 {
		t.Errorf("Detokenize() produced %d events, want sentinels skipped and 2 events", len(track.Events))
	}
}

func TestDetokenizeIDsSkipsUnknown(t *testing.T) {
	d := mustDetokenizer(t, DefaultConfig())
	vocab := d.Vocab()

	ids := []int{
		vocab.StartID(),
		-5,       // unknown, skipped
		9999,     // unknown, skipped
		60,       // NOTE_ON(60), missing velocity -> default
		256 + 3,  // TIME_SHIFT bucket 4
		128 + 60, // NOTE_OFF(60)
		vocab.EndID(),
	}
	track := d.DetokenizeIDs(ids)

	want := []midifile.Event{
		{Kind: midifile.NoteOn, Pitch: 60, Velocity: DefaultConfig().DefaultVelocity, Tick: 0},
		{Kind: midifile.NoteOff, Pitch: 60, Tick: 480},
	}
	if len(track.Events) != len(want) {
		t.Fatalf("DetokenizeIDs() = %+v, want %+v", track.Events, want)
	}
	for i := range want {
		if track.Events[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, track.Events[i], want[i])
		}
	}
}

func TestTokenizeDetokenizeRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	tok := mustTokenizer(t, cfg)
	d := mustDetokenizer(t, cfg)

	original := midifile.Track{Events: []midifile.Event{
		{Kind: midifile.NoteOn, Pitch: 60, Velocity: 100, Tick: 0},
		{Kind: midifile.NoteOn, Pitch: 64, Velocity: 90, Tick: 120},
		{Kind: midifile.NoteOff, Pitch: 60, Tick: 480},
		{Kind: midifile.NoteOff, Pitch: 64, Tick: 600},
		{Kind: midifile.NoteOn, Pitch: 72, Velocity: 127, Tick: 2400},
		{Kind: midifile.NoteOff, Pitch: 72, Tick: 2880},
	}}

	toks, err := tok.Tokenize(original)
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	recovered := d.Detokenize(toks)

	if len(recovered.Events) != len(original.Events) {
		t.Fatalf("recovered %d events, want %d", len(recovered.Events), len(original.Events))
	}
	vocab := tok.Vocab()
	for i, want := range original.Events {
		got := recovered.Events[i]
		if got.Kind != want.Kind || got.Pitch != want.Pitch {
			t.Errorf("event %d = %s(%d), want %s(%d)", i, got.Kind, got.Pitch, want.Kind, want.Pitch)
		}
		if got.Tick != want.Tick {
			t.Errorf("event %d tick = %d, want %d (all gaps are multiples of the granularity)", i, got.Tick, want.Tick)
		}
		if want.Kind == midifile.NoteOn && vocab.VelocityBucket(got.Velocity) != vocab.VelocityBucket(want.Velocity) {
			t.Errorf("event %d velocity %d is not in the original's bucket %d", i, got.Velocity, vocab.VelocityBucket(want.Velocity))
		}
	}
	assertNoDanglingNotes(t, recovered)
}

func TestRetokenizeIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	tok := mustTokenizer(t, cfg)
	d := mustDetokenizer(t, cfg)

	original := []Token{
		{Kind: KindVelocity, Value: 25},
		{Kind: KindNoteOn, Value: 60},
		{Kind: KindTimeShift, Value: 4},
		{Kind: KindNoteOff, Value: 60},
		{Kind: KindTimeShift, Value: 2},
		{Kind: KindVelocity, Value: 5},
		{Kind: KindNoteOn, Value: 67},
		{Kind: KindTimeShift, Value: 16},
		{Kind: KindNoteOff, Value: 67},
	}

	retokenized, err := tok.Tokenize(d.Detokenize(original))
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	if len(retokenized) != len(original) {
		t.Fatalf("retokenized %d tokens, want %d", len(retokenized), len(original))
	}
	for i := range original {
		if retokenized[i] != original[i] {
			t.Errorf("token %d = %+v, want %+v", i, retokenized[i], original[i])
		}
	}
}

func TestRetokenizeRepairsMalformed(t *testing.T) {
	cfg := DefaultConfig()
	tok := mustTokenizer(t, cfg)
	d := mustDetokenizer(t, cfg)

	// Orphan NOTE_OFF, missing VELOCITY, unterminated note.
	malformed := []Token{
		{Kind: KindNoteOff, Value: 40},
		{Kind: KindNoteOn, Value: 60},
		{Kind: KindTimeShift, Value: 2},
	}

	repaired, err := tok.Tokenize(d.Detokenize(malformed))
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}

	defaultBucket := tok.Vocab().VelocityBucket(cfg.DefaultVelocity)
	want := []Token{
		{Kind: KindVelocity, Value: defaultBucket},
		{Kind: KindNoteOn, Value: 60},
		{Kind: KindTimeShift, Value: 2},
		{Kind: KindNoteOff, Value: 60},
	}
	if len(repaired) != len(want) {
		t.Fatalf("repaired = %+v, want %+v", repaired, want)
	}
	for i := range want {
		if repaired[i] != want[i] {
			t.Errorf("token %d = %+v, want %+v", i, repaired[i], want[i])
		}
	}
}

// assertNoDanglingNotes checks every NoteOn is matched by a NoteOff at an
// equal or later tick
func assertNoDanglingNotes(t *testing.T, track midifile.Track) {
	t.Helper()
	open := map[uint8]int{}
	for _, ev := range track.Events {
		switch ev.Kind {
		case midifile.NoteOn:
			open[ev.Pitch]++
		case midifile.NoteOff:
			if open[ev.Pitch] == 0 {
				t.Fatalf("NoteOff(%d) at tick %d has no matching NoteOn", ev.Pitch, ev.Tick)
			}
			open[ev.Pitch]--
		}
	}
	for pitch, count := range open {
		if count > 0 {
			t.Errorf("pitch %d has %d unterminated notes", pitch, count)
		}
	}
}
