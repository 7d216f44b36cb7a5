package tokens

import (
	"fmt"
	"strconv"
	"strings"
)

// Readable renders a single token as human-readable text, e.g. "NOTE_ON 60"
// or "TIME_SHIFT 480" (time shifts show ticks, velocities show the
// reconstructed velocity)
func (v *Vocab) Readable(t Token) string {
	switch t.Kind {
	case KindNoteOn, KindNoteOff:
		return fmt.Sprintf("%s %d", t.Kind, t.Value)
	case KindTimeShift:
		return fmt.Sprintf("%s %d", t.Kind, v.ShiftTicks(t.Value))
	case KindVelocity:
		return fmt.Sprintf("%s %d", t.Kind, v.BucketVelocity(t.Value))
	case KindStart, KindEnd:
		return t.Kind.String()
	default:
		return fmt.Sprintf("UNKNOWN %d", t.Value)
	}
}

// ReadableID renders an integer ID, labelling IDs outside the vocabulary
// instead of failing
func (v *Vocab) ReadableID(id int) string {
	tok, err := v.Token(id)
	if err != nil {
		return fmt.Sprintf("UNKNOWN %d", id)
	}
	return v.Readable(tok)
}

// FormatReadable renders a whole sequence, one token per line
func (v *Vocab) FormatReadable(toks []Token) string {
	var b strings.Builder
	for _, t := range toks {
		b.WriteString(v.Readable(t))
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatTokenText renders integer IDs as text, one per line
func FormatTokenText(ids []int) string {
	var b strings.Builder
	for _, id := range ids {
		b.WriteString(strconv.Itoa(id))
		b.WriteByte('\n')
	}
	return b.String()
}

// ParseTokenText reads integer IDs from text. It accepts either a
// bracketed, comma-separated list ("[288, 60, 266]") or one integer per
// line.
func ParseTokenText(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var fields []string
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		inner := strings.TrimSpace(s[1 : len(s)-1])
		if inner == "" {
			return nil, nil
		}
		fields = strings.Split(inner, ",")
	} else {
		fields = strings.Fields(s)
	}

	ids := make([]int, 0, len(fields))
	for i, f := range fields {
		id, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, &TokenError{Index: i, Err: fmt.Errorf("%w: %q is not an integer", ErrUnknownToken, strings.TrimSpace(f))}
		}
		ids = append(ids, id)
	}
	return ids, nil
}
