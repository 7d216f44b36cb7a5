package converter

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/freeman-jiang/midigen/pkg/midifile"
	"github.com/freeman-jiang/midigen/pkg/tokens"
	"gitlab.com/gomidi/midi/v2/smf"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename string
		expected Format
	}{
		{"test.mid", FormatMIDI},
		{"test.midi", FormatMIDI},
		{"test.txt", FormatTokens},
		{"test.tok", FormatTokens},
		{"test.tokens", FormatTokens},
		{"test.wav", FormatUnknown},
		{"test", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			result := DetectFormat(tt.filename)
			if result != tt.expected {
				t.Errorf("DetectFormat(%q) = %v, want %v", tt.filename, result, tt.expected)
			}
		})
	}
}

func TestDetectFormatFromContent(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected Format
	}{
		{"MIDI file", []byte("MThd\x00\x00\x00\x06"), FormatMIDI},
		{"bracketed token list", []byte("[288, 60, 289]"), FormatTokens},
		{"tokens one per line", []byte("288\n60\n289\n"), FormatTokens},
		{"short data", []byte{0x00, 0x01}, FormatUnknown},
		{"arbitrary text", []byte("hello world"), FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DetectFormatFromContent(tt.data)
			if result != tt.expected {
				t.Errorf("DetectFormatFromContent() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(tokens.Config{}); err == nil {
		t.Error("New() with a zero config succeeded, want error")
	}
}

func testMIDI(t *testing.T) []byte {
	t.Helper()
	track := midifile.Track{Events: []midifile.Event{
		{Kind: midifile.NoteOn, Pitch: 60, Velocity: 100, Tick: 0},
		{Kind: midifile.NoteOff, Pitch: 60, Tick: 480},
		{Kind: midifile.NoteOn, Pitch: 64, Velocity: 80, Tick: 480},
		{Kind: midifile.NoteOff, Pitch: 64, Tick: 960},
	}}
	data, err := midifile.EncodeTrack(track, 480)
	if err != nil {
		t.Fatalf("EncodeTrack() error = %v", err)
	}
	return data
}

func TestMIDIToTokensToMIDI(t *testing.T) {
	conv, err := New(tokens.DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ids, err := conv.MIDIToTokens(testMIDI(t))
	if err != nil {
		t.Fatalf("MIDIToTokens() error = %v", err)
	}
	if ids[0] != conv.Vocab().StartID() || ids[len(ids)-1] != conv.Vocab().EndID() {
		t.Error("token stream is not bracketed by the sequence sentinels")
	}

	midiData, err := conv.TokensToMIDI(ids)
	if err != nil {
		t.Fatalf("TokensToMIDI() error = %v", err)
	}

	// The rebuilt file must be independently parseable.
	if _, err := smf.ReadFrom(bytes.NewReader(midiData)); err != nil {
		t.Fatalf("smf.ReadFrom() rejected rebuilt MIDI: %v", err)
	}

	// And the note content must survive the full round trip.
	f, err := midifile.Decode(midiData)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	events := f.MergedTrack().Events
	if len(events) != 4 {
		t.Fatalf("round trip produced %d events, want 4", len(events))
	}
	wantPitches := []uint8{60, 60, 64, 64}
	for i, ev := range events {
		if ev.Pitch != wantPitches[i] {
			t.Errorf("event %d pitch = %d, want %d", i, ev.Pitch, wantPitches[i])
		}
	}
}

func TestTokensToMIDIRepairsMalformedInput(t *testing.T) {
	conv, err := New(tokens.DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Model-style garbage: orphan note-off, unknown id, unterminated note.
	ids := []int{128 + 64, 99999, 60, 256 + 3}
	midiData, err := conv.TokensToMIDI(ids)
	if err != nil {
		t.Fatalf("TokensToMIDI() error = %v, want repair instead of failure", err)
	}
	if _, err := smf.ReadFrom(bytes.NewReader(midiData)); err != nil {
		t.Errorf("smf.ReadFrom() rejected repaired MIDI: %v", err)
	}
}

func TestTokensToMIDISurvivesHugeTimeShiftRun(t *testing.T) {
	conv, err := New(tokens.DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// A run of maximum time shifts long enough to push the cursor past
	// the largest delta a MIDI variable-length quantity can carry.
	maxShift := 256 + conv.Vocab().ShiftBuckets() - 1
	ids := make([]int, 0, 139813)
	for i := 0; i < 139811; i++ {
		ids = append(ids, maxShift)
	}
	ids = append(ids, 60, 128+60)

	midiData, err := conv.TokensToMIDI(ids)
	if err != nil {
		t.Fatalf("TokensToMIDI() error = %v, want a valid stream regardless of gap size", err)
	}
	if _, err := smf.ReadFrom(bytes.NewReader(midiData)); err != nil {
		t.Errorf("smf.ReadFrom() rejected the rebuilt MIDI: %v", err)
	}
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	midiPath := filepath.Join(dir, "song.mid")
	tokenPath := filepath.Join(dir, "song.tokens")
	rebuiltPath := filepath.Join(dir, "rebuilt.mid")

	if err := os.WriteFile(midiPath, testMIDI(t), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	conv, err := New(tokens.DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := conv.ConvertFile(midiPath, tokenPath); err != nil {
		t.Fatalf("ConvertFile(midi -> tokens) error = %v", err)
	}
	if err := conv.ConvertFile(tokenPath, rebuiltPath); err != nil {
		t.Fatalf("ConvertFile(tokens -> midi) error = %v", err)
	}

	rebuilt, err := os.ReadFile(rebuiltPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if DetectFormatFromContent(rebuilt) != FormatMIDI {
		t.Error("rebuilt file is not a MIDI file")
	}
}

func TestConvertFileUnknownOutput(t *testing.T) {
	dir := t.TempDir()
	midiPath := filepath.Join(dir, "song.mid")
	if err := os.WriteFile(midiPath, testMIDI(t), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	conv, err := New(tokens.DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := conv.ConvertFile(midiPath, filepath.Join(dir, "song.wav")); err == nil {
		t.Error("ConvertFile() to an unknown format succeeded, want error")
	}
}

func TestGetSupportedConversions(t *testing.T) {
	conversions := GetSupportedConversions()
	if len(conversions) != 2 {
		t.Errorf("GetSupportedConversions() returned %d conversions, want 2", len(conversions))
	}
}
