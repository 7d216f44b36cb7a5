// Package converter provides conversion between MIDI files and token sequences
package converter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/freeman-jiang/midigen/pkg/midifile"
	"github.com/freeman-jiang/midigen/pkg/tokens"
)

// Format represents a file format
type Format string

const (
	FormatMIDI    Format = "midi"
	FormatTokens  Format = "tokens"
	FormatUnknown Format = "unknown"
)

// DetectFormat detects the format of a file based on extension
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mid", ".midi":
		return FormatMIDI
	case ".txt", ".tok", ".tokens":
		return FormatTokens
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent detects format from file content
func DetectFormatFromContent(data []byte) Format {
	if len(data) < 4 {
		return FormatUnknown
	}

	// Check for MIDI file signature "MThd"
	if string(data[:4]) == "MThd" {
		return FormatMIDI
	}

	// Token files hold integers as text, optionally bracketed.
	trimmed := strings.TrimSpace(string(data))
	if len(trimmed) > 0 {
		c := trimmed[0]
		if c == '[' || (c >= '0' && c <= '9') {
			return FormatTokens
		}
	}

	return FormatUnknown
}

// Converter runs the codec pipeline in both directions under one
// quantization configuration
type Converter struct {
	cfg         tokens.Config
	tokenizer   *tokens.Tokenizer
	detokenizer *tokens.Detokenizer
}

// New creates a Converter with the given configuration
func New(cfg tokens.Config) (*Converter, error) {
	tokenizer, err := tokens.NewTokenizer(cfg)
	if err != nil {
		return nil, err
	}
	detokenizer, err := tokens.NewDetokenizer(cfg)
	if err != nil {
		return nil, err
	}
	return &Converter{cfg: cfg, tokenizer: tokenizer, detokenizer: detokenizer}, nil
}

// Vocab returns the vocabulary shared by both directions
func (c *Converter) Vocab() *tokens.Vocab {
	return c.tokenizer.Vocab()
}

// MIDIToTokens decodes MIDI data, merges its tracks, and returns the token
// sequence as integer IDs bracketed by the sequence sentinels
func (c *Converter) MIDIToTokens(midiData []byte) ([]int, error) {
	f, err := midifile.Decode(midiData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}
	ids, err := c.tokenizer.TokenizeIDs(f.MergedTrack())
	if err != nil {
		return nil, fmt.Errorf("tokenization failed: %w", err)
	}
	return ids, nil
}

// TokensToMIDI reconstructs a track from integer IDs and encodes it as a
// single-track MIDI file. Malformed IDs are repaired, never rejected.
func (c *Converter) TokensToMIDI(ids []int) ([]byte, error) {
	track := c.detokenizer.DetokenizeIDs(ids)
	data, err := midifile.EncodeTrack(track, midifile.DefaultTicksPerQuarter)
	if err != nil {
		return nil, fmt.Errorf("failed to generate MIDI: %w", err)
	}
	return data, nil
}

// TokensReadable renders integer IDs as human-readable text, one per line
func (c *Converter) TokensReadable(ids []int) string {
	var b strings.Builder
	for _, id := range ids {
		b.WriteString(c.Vocab().ReadableID(id))
		b.WriteByte('\n')
	}
	return b.String()
}

// ConvertFile converts a file from one format to another, detecting both
// formats from the filenames (falling back to content detection for the
// input)
func (c *Converter) ConvertFile(inputPath, outputPath string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	inputFormat := DetectFormat(inputPath)
	if inputFormat == FormatUnknown {
		inputFormat = DetectFormatFromContent(data)
	}
	outputFormat := DetectFormat(outputPath)
	if outputFormat == FormatUnknown {
		return errors.New("cannot determine output format from filename")
	}

	var outputData []byte
	switch {
	case inputFormat == FormatMIDI && outputFormat == FormatTokens:
		ids, err := c.MIDIToTokens(data)
		if err != nil {
			return fmt.Errorf("conversion failed: %w", err)
		}
		outputData = []byte(tokens.FormatTokenText(ids))
	case inputFormat == FormatTokens && outputFormat == FormatMIDI:
		ids, err := tokens.ParseTokenText(string(data))
		if err != nil {
			return fmt.Errorf("failed to parse token file: %w", err)
		}
		outputData, err = c.TokensToMIDI(ids)
		if err != nil {
			return fmt.Errorf("conversion failed: %w", err)
		}
	default:
		return fmt.Errorf("unsupported conversion: %s to %s", inputFormat, outputFormat)
	}

	if err := os.WriteFile(outputPath, outputData, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// GetSupportedConversions returns a list of supported conversion paths
func GetSupportedConversions() []string {
	return []string{
		"midi -> tokens",
		"tokens -> midi",
	}
}
