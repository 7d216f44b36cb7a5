package tokens

import "fmt"

// Kind identifies the type of a token
type Kind uint8

const (
	// KindNoteOn starts a note at the current cursor
	KindNoteOn Kind = iota
	// KindNoteOff ends a note at the current cursor
	KindNoteOff
	// KindTimeShift advances the cursor by a quantized delta
	KindTimeShift
	// KindVelocity sets the velocity for the NOTE_ON that must follow
	KindVelocity
	// KindStart marks the beginning of a sequence
	KindStart
	// KindEnd marks the end of a sequence
	KindEnd
)

func (k Kind) String() string {
	switch k {
	case KindNoteOn:
		return "NOTE_ON"
	case KindNoteOff:
		return "NOTE_OFF"
	case KindTimeShift:
		return "TIME_SHIFT"
	case KindVelocity:
		return "VELOCITY"
	case KindStart:
		return "START_SEQUENCE"
	case KindEnd:
		return "END_SEQUENCE"
	default:
		return "UNKNOWN"
	}
}

// Token is one symbol of the vocabulary. Value holds the pitch for note
// tokens, the 1-based bucket for time shifts, the 0-based bucket for
// velocities, and zero for the sequence sentinels.
type Token struct {
	Kind  Kind
	Value int
}

// Integer ID layout of the vocabulary. Note tokens mirror the raw MIDI
// ranges; the quantized and sentinel tokens follow contiguously.
const (
	noteOnBase    = 0
	noteOffBase   = 128
	timeShiftBase = 256
)

// Vocab is the closed, bidirectional mapping between tokens and integer IDs
// for a given quantization configuration
type Vocab struct {
	cfg          Config
	shiftBuckets int
	velocityBase int
	startID      int
	endID        int
}

// NewVocab builds the vocabulary for the given configuration
func NewVocab(cfg Config) (*Vocab, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	shiftBuckets := cfg.MaxTimeShift / cfg.TimeShiftGranularity
	velocityBase := timeShiftBase + shiftBuckets
	return &Vocab{
		cfg:          cfg,
		shiftBuckets: shiftBuckets,
		velocityBase: velocityBase,
		startID:      velocityBase + cfg.VelocityBuckets,
		endID:        velocityBase + cfg.VelocityBuckets + 1,
	}, nil
}

// Config returns the configuration the vocabulary was built from
func (v *Vocab) Config() Config {
	return v.cfg
}

// Size returns the total number of IDs in the vocabulary
func (v *Vocab) Size() int {
	return v.endID + 1
}

// ShiftBuckets returns the number of TIME_SHIFT buckets
func (v *Vocab) ShiftBuckets() int {
	return v.shiftBuckets
}

// StartID returns the START_SEQUENCE sentinel ID
func (v *Vocab) StartID() int {
	return v.startID
}

// EndID returns the END_SEQUENCE sentinel ID
func (v *Vocab) EndID() int {
	return v.endID
}

// ID maps a token to its integer ID
func (v *Vocab) ID(t Token) (int, error) {
	switch t.Kind {
	case KindNoteOn:
		if t.Value < 0 || t.Value > 127 {
			return 0, fmt.Errorf("%w: NOTE_ON pitch %d", ErrUnknownToken, t.Value)
		}
		return noteOnBase + t.Value, nil
	case KindNoteOff:
		if t.Value < 0 || t.Value > 127 {
			return 0, fmt.Errorf("%w: NOTE_OFF pitch %d", ErrUnknownToken, t.Value)
		}
		return noteOffBase + t.Value, nil
	case KindTimeShift:
		if t.Value < 1 || t.Value > v.shiftBuckets {
			return 0, fmt.Errorf("%w: TIME_SHIFT bucket %d, want 1-%d", ErrUnknownToken, t.Value, v.shiftBuckets)
		}
		return timeShiftBase + t.Value - 1, nil
	case KindVelocity:
		if t.Value < 0 || t.Value >= v.cfg.VelocityBuckets {
			return 0, fmt.Errorf("%w: VELOCITY bucket %d, want 0-%d", ErrUnknownToken, t.Value, v.cfg.VelocityBuckets-1)
		}
		return v.velocityBase + t.Value, nil
	case KindStart:
		return v.startID, nil
	case KindEnd:
		return v.endID, nil
	default:
		return 0, fmt.Errorf("%w: kind %d", ErrUnknownToken, t.Kind)
	}
}

// Token maps an integer ID back to its token
func (v *Vocab) Token(id int) (Token, error) {
	switch {
	case id >= noteOnBase && id < noteOffBase:
		return Token{Kind: KindNoteOn, Value: id - noteOnBase}, nil
	case id >= noteOffBase && id < timeShiftBase:
		return Token{Kind: KindNoteOff, Value: id - noteOffBase}, nil
	case id >= timeShiftBase && id < timeShiftBase+v.shiftBuckets:
		return Token{Kind: KindTimeShift, Value: id - timeShiftBase + 1}, nil
	case id >= v.velocityBase && id < v.startID:
		return Token{Kind: KindVelocity, Value: id - v.velocityBase}, nil
	case id == v.startID:
		return Token{Kind: KindStart}, nil
	case id == v.endID:
		return Token{Kind: KindEnd}, nil
	default:
		return Token{}, fmt.Errorf("%w: id %d outside vocabulary of size %d", ErrUnknownToken, id, v.Size())
	}
}

// IDs converts a token sequence to integer IDs
func (v *Vocab) IDs(toks []Token) ([]int, error) {
	ids := make([]int, len(toks))
	for i, t := range toks {
		id, err := v.ID(t)
		if err != nil {
			return nil, &TokenError{Index: i, Err: err}
		}
		ids[i] = id
	}
	return ids, nil
}

// Tokens converts integer IDs to tokens, failing on the first unknown ID
func (v *Vocab) Tokens(ids []int) ([]Token, error) {
	toks := make([]Token, len(ids))
	for i, id := range ids {
		t, err := v.Token(id)
		if err != nil {
			return nil, &TokenError{Index: i, Err: err}
		}
		toks[i] = t
	}
	return toks, nil
}

// WrapSequence brackets an ID sequence with the START_SEQUENCE and
// END_SEQUENCE sentinels
func (v *Vocab) WrapSequence(ids []int) []int {
	wrapped := make([]int, 0, len(ids)+2)
	wrapped = append(wrapped, v.startID)
	wrapped = append(wrapped, ids...)
	wrapped = append(wrapped, v.endID)
	return wrapped
}

// VelocityBucket quantizes a velocity into its bucket. The mapping is
// uniform, deterministic, and monotonic in velocity.
func (v *Vocab) VelocityBucket(velocity uint8) int {
	if velocity > 127 {
		velocity = 127
	}
	return int(velocity) * v.cfg.VelocityBuckets / 128
}

// BucketVelocity reconstructs a velocity from its bucket, returning the
// midpoint of the bucket's range so the value re-quantizes to the same
// bucket
func (v *Vocab) BucketVelocity(bucket int) uint8 {
	if bucket < 0 {
		bucket = 0
	}
	if bucket >= v.cfg.VelocityBuckets {
		bucket = v.cfg.VelocityBuckets - 1
	}
	lo := (bucket*128 + v.cfg.VelocityBuckets - 1) / v.cfg.VelocityBuckets
	hi := (bucket+1)*128/v.cfg.VelocityBuckets - 1
	return uint8((lo + hi) / 2)
}

// ShiftTicks returns the tick delta a TIME_SHIFT bucket stands for
func (v *Vocab) ShiftTicks(bucket int) int {
	return bucket * v.cfg.TimeShiftGranularity
}

// SplitGap decomposes a tick gap into TIME_SHIFT buckets, greedy
// largest-first. A gap at or below MaxTimeShift yields a single bucket; a
// nonzero remainder always yields a token (rounded to the nearest step,
// minimum one) so no positive gap collapses to nothing.
func (v *Vocab) SplitGap(gap int) []int {
	if gap <= 0 {
		return nil
	}
	var buckets []int
	for gap >= v.cfg.MaxTimeShift {
		buckets = append(buckets, v.shiftBuckets)
		gap -= v.cfg.MaxTimeShift
	}
	if gap > 0 {
		b := (gap + v.cfg.TimeShiftGranularity/2) / v.cfg.TimeShiftGranularity
		if b < 1 {
			b = 1
		}
		if b > v.shiftBuckets {
			b = v.shiftBuckets
		}
		buckets = append(buckets, b)
	}
	return buckets
}
