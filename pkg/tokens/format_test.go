package tokens

import (
	"errors"
	"testing"
)

func TestReadable(t *testing.T) {
	vocab, err := NewVocab(DefaultConfig())
	if err != nil {
		t.Fatalf("NewVocab() error = %v", err)
	}

	tests := []struct {
		tok  Token
		want string
	}{
		{Token{Kind: KindNoteOn, Value: 60}, "NOTE_ON 60"},
		{Token{Kind: KindNoteOff, Value: 64}, "NOTE_OFF 64"},
		{Token{Kind: KindTimeShift, Value: 4}, "TIME_SHIFT 480"},
		{Token{Kind: KindStart}, "START_SEQUENCE"},
		{Token{Kind: KindEnd}, "END_SEQUENCE"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := vocab.Readable(tt.tok); got != tt.want {
				t.Errorf("Readable(%+v) = %q, want %q", tt.tok, got, tt.want)
			}
		})
	}

	if got := vocab.ReadableID(99999); got != "UNKNOWN 99999" {
		t.Errorf("ReadableID(99999) = %q, want %q", got, "UNKNOWN 99999")
	}
}

func TestParseTokenText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []int
	}{
		{"bracketed list", "[288, 60, 266, 188, 289]", []int{288, 60, 266, 188, 289}},
		{"one per line", "288\n60\n266\n188\n289\n", []int{288, 60, 266, 188, 289}},
		{"whitespace and blank lines", "  288\n\n 60 \n", []int{288, 60}},
		{"empty", "", nil},
		{"empty brackets", "[]", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTokenText(tt.input)
			if err != nil {
				t.Fatalf("ParseTokenText(%q) error = %v", tt.input, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseTokenText(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("ParseTokenText(%q)[%d] = %d, want %d", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}

	if _, err := ParseTokenText("60\nbanana\n"); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("ParseTokenText with garbage error = %v, want ErrUnknownToken", err)
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	ids := []int{288, 60, 266, 188, 289}
	got, err := ParseTokenText(FormatTokenText(ids))
	if err != nil {
		t.Fatalf("ParseTokenText() error = %v", err)
	}
	if len(got) != len(ids) {
		t.Fatalf("round trip = %v, want %v", got, ids)
	}
	for i := range ids {
		if got[i] != ids[i] {
			t.Errorf("round trip[%d] = %d, want %d", i, got[i], ids[i])
		}
	}
}
