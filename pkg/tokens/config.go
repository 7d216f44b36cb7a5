// Package tokens maps MIDI note events to and from a closed symbolic
// vocabulary suitable for sequence models
package tokens

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRangeEvent indicates a track event with a field outside its legal domain
	ErrOutOfRangeEvent = errors.New("event out of range")
	// ErrUnknownToken indicates an integer ID outside the vocabulary
	ErrUnknownToken = errors.New("unknown token")
	// ErrBadConfig indicates an invalid quantization configuration
	ErrBadConfig = errors.New("bad tokenizer config")
)

// TokenError wraps a tokenization failure with the index of the offending
// event or token
type TokenError struct {
	Index int
	Err   error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("token error at index %d: %v", e.Index, e.Err)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// Config fixes the quantization policy and therefore the vocabulary. The
// same Config must be used to tokenize and to detokenize a sequence.
type Config struct {
	// VelocityBuckets is the number of discrete velocity levels (1-128)
	VelocityBuckets int
	// TimeShiftGranularity is the tick size of one time-shift step
	TimeShiftGranularity int
	// MaxTimeShift is the largest delta a single TIME_SHIFT token can carry,
	// in ticks; it must be a positive multiple of TimeShiftGranularity
	MaxTimeShift int
	// DefaultVelocity is used when a NOTE_ON arrives with no preceding
	// VELOCITY token (0-127)
	DefaultVelocity uint8
}

// DefaultConfig returns the quantization policy used when none is supplied:
// 32 velocity levels, 120-tick steps up to a 1920-tick (whole note at 480
// PPQN) maximum per token, default velocity 64.
func DefaultConfig() Config {
	return Config{
		VelocityBuckets:      32,
		TimeShiftGranularity: 120,
		MaxTimeShift:         1920,
		DefaultVelocity:      64,
	}
}

// Validate checks the configuration invariants
func (c Config) Validate() error {
	if c.VelocityBuckets < 1 || c.VelocityBuckets > 128 {
		return fmt.Errorf("%w: velocity buckets %d, want 1-128", ErrBadConfig, c.VelocityBuckets)
	}
	if c.TimeShiftGranularity < 1 {
		return fmt.Errorf("%w: time shift granularity %d, want >= 1", ErrBadConfig, c.TimeShiftGranularity)
	}
	if c.MaxTimeShift < c.TimeShiftGranularity {
		return fmt.Errorf("%w: max time shift %d is below granularity %d", ErrBadConfig, c.MaxTimeShift, c.TimeShiftGranularity)
	}
	if c.MaxTimeShift%c.TimeShiftGranularity != 0 {
		return fmt.Errorf("%w: max time shift %d is not a multiple of granularity %d", ErrBadConfig, c.MaxTimeShift, c.TimeShiftGranularity)
	}
	if c.DefaultVelocity > 127 {
		return fmt.Errorf("%w: default velocity %d, want 0-127", ErrBadConfig, c.DefaultVelocity)
	}
	return nil
}
