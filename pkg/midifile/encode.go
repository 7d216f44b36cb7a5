package midifile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
)

// Default tempo and resolution used when a File carries no tempo of its own
const (
	DefaultTicksPerQuarter = 480
	defaultMicrosPerBeat   = 500000 // 120 BPM
)

// Encode serializes a File into Standard MIDI File bytes. Format 0 is
// emitted for a single track, format 1 otherwise. Every open note is closed
// with a synthesized note-off before end-of-track so the output is always
// playable. Fails with ErrInvalidEvent if an event's pitch or velocity is
// outside 0-127.
func Encode(f *File) ([]byte, error) {
	if f == nil || len(f.Tracks) == 0 {
		return nil, fmt.Errorf("%w: no tracks to encode", ErrInvalidEvent)
	}
	tpq := f.TicksPerQuarter
	if tpq == 0 {
		tpq = DefaultTicksPerQuarter
	}

	var buf bytes.Buffer
	buf.WriteString(headerSignature)
	format := uint16(0)
	if len(f.Tracks) > 1 {
		format = 1
	}
	header := struct {
		Length     uint32
		Format     uint16
		TrackCount uint16
		Division   uint16
	}{headerDataLen, format, uint16(len(f.Tracks)), tpq}
	if err := binary.Write(&buf, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, track := range f.Tracks {
		chunk, err := encodeTrack(track, i == 0)
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", i, err)
		}
		buf.WriteString(trackSignature)
		if err := binary.Write(&buf, binary.BigEndian, uint32(len(chunk))); err != nil {
			return nil, fmt.Errorf("failed to write track %d length: %w", i, err)
		}
		buf.Write(chunk)
	}
	return buf.Bytes(), nil
}

// EncodeTrack serializes a single track at the given resolution
func EncodeTrack(track Track, ticksPerQuarter uint16) ([]byte, error) {
	return Encode(&File{TicksPerQuarter: ticksPerQuarter, Tracks: []Track{track}})
}

// encodeTrack produces a track chunk body: tempo and time-signature meta on
// the first track, then the note events as delta-time-prefixed channel
// messages on channel 0, then end-of-track.
func encodeTrack(track Track, first bool) ([]byte, error) {
	events := make([]Event, len(track.Events))
	copy(events, track.Events)
	// Stable so an already well-ordered track round-trips byte-for-byte.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Tick < events[j].Tick
	})

	var chunk bytes.Buffer
	if first {
		writeVarLen(&chunk, 0)
		chunk.Write([]byte{
			0xFF, 0x51, 0x03,
			byte(defaultMicrosPerBeat >> 16 & 0xFF),
			byte(defaultMicrosPerBeat >> 8 & 0xFF),
			byte(defaultMicrosPerBeat & 0xFF),
		})
		writeVarLen(&chunk, 0)
		chunk.Write([]byte{0xFF, 0x58, 0x04, 0x04, 0x02, 0x18, 0x08}) // 4/4
	}

	open := map[uint8]int{}
	var lastTick uint32
	for i, ev := range events {
		if ev.Pitch > 127 {
			return nil, &EncodeError{EventIndex: i, Err: fmt.Errorf("%w: pitch %d out of range", ErrInvalidEvent, ev.Pitch)}
		}
		if ev.Velocity > 127 {
			return nil, &EncodeError{EventIndex: i, Err: fmt.Errorf("%w: velocity %d out of range", ErrInvalidEvent, ev.Velocity)}
		}

		writeVarLen(&chunk, ev.Tick-lastTick)
		lastTick = ev.Tick

		switch ev.Kind {
		case NoteOn:
			chunk.Write([]byte{0x90, ev.Pitch, ev.Velocity})
			open[ev.Pitch]++
		case NoteOff:
			chunk.Write([]byte{0x80, ev.Pitch, 0x40})
			if open[ev.Pitch] > 0 {
				open[ev.Pitch]--
			}
		default:
			return nil, &EncodeError{EventIndex: i, Err: fmt.Errorf("%w: unknown event kind %d", ErrInvalidEvent, ev.Kind)}
		}
	}

	// Close notes left open by upstream data loss so the track stays playable.
	pitches := make([]int, 0, len(open))
	for pitch, count := range open {
		for ; count > 0; count-- {
			pitches = append(pitches, int(pitch))
		}
	}
	sort.Ints(pitches)
	for _, pitch := range pitches {
		writeVarLen(&chunk, 0)
		chunk.Write([]byte{0x80, uint8(pitch), 0x40})
	}

	writeVarLen(&chunk, 0)
	chunk.Write([]byte{0xFF, 0x2F, 0x00})
	return chunk.Bytes(), nil
}

// maxVarLen is the largest value a four-byte variable-length quantity
// can hold (28 payload bits).
const maxVarLen = 0x0FFFFFFF

// writeVarLen emits a variable-length quantity, most significant
// seven bits first. Values beyond the four-byte ceiling are clamped
// so arbitrarily large tick gaps still serialize.
func writeVarLen(buf *bytes.Buffer, value uint32) {
	if value > maxVarLen {
		value = maxVarLen
	}
	var out [4]byte
	n := 3
	out[3] = byte(value & 0x7F)
	value >>= 7
	for value > 0 {
		n--
		out[n] = byte(value&0x7F) | 0x80
		value >>= 7
	}
	buf.Write(out[n:])
}
