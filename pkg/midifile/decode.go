package midifile

import (
	"encoding/binary"
	"fmt"
)

// Chunk signatures and sizes from the SMF specification
const (
	headerSignature = "MThd"
	trackSignature  = "MTrk"
	headerDataLen   = 6
)

// Decode parses a Standard MIDI File from a byte buffer. It validates the
// header chunk, walks every declared track chunk, and extracts note events
// at absolute tick positions. Unsupported event types (control changes,
// program changes, sysex, non-terminal meta events) are skipped without
// losing stream position. The input is untrusted: structural corruption is
// reported as a DecodeError rather than repaired.
func Decode(data []byte) (*File, error) {
	p := &parser{data: data}
	return p.parseFile()
}

type parser struct {
	data []byte
	pos  int
}

func (p *parser) parseFile() (*File, error) {
	if len(p.data) < 8 {
		return nil, decodeErrf(0, ErrMalformedHeader, "file too short for a header chunk (%d bytes)", len(p.data))
	}
	if string(p.data[0:4]) != headerSignature {
		return nil, decodeErrf(0, ErrMalformedHeader, "expected %q chunk signature, got %q", headerSignature, string(p.data[0:4]))
	}
	headerLen := binary.BigEndian.Uint32(p.data[4:8])
	if headerLen != headerDataLen {
		return nil, decodeErrf(4, ErrMalformedHeader, "header chunk length %d, want %d", headerLen, headerDataLen)
	}
	if len(p.data) < 8+headerDataLen {
		return nil, decodeErrf(8, ErrTruncatedStream, "header chunk needs %d bytes, %d remain", headerDataLen, len(p.data)-8)
	}

	format := binary.BigEndian.Uint16(p.data[8:10])
	if format > 1 {
		return nil, decodeErrf(8, ErrUnsupportedFormat, "SMF format %d (only 0 and 1 are supported)", format)
	}
	trackCount := binary.BigEndian.Uint16(p.data[10:12])
	if format == 0 && trackCount != 1 {
		return nil, decodeErrf(10, ErrMalformedHeader, "format 0 file declares %d tracks, want 1", trackCount)
	}
	division := binary.BigEndian.Uint16(p.data[12:14])
	if division&0x8000 != 0 {
		return nil, decodeErrf(12, ErrUnsupportedFormat, "SMPTE time division 0x%04x is not supported", division)
	}
	if division == 0 {
		return nil, decodeErrf(12, ErrMalformedHeader, "zero ticks per quarter note")
	}

	f := &File{
		Format:          format,
		TicksPerQuarter: division,
		Tracks:          make([]Track, 0, trackCount),
	}

	p.pos = 8 + headerDataLen
	for len(f.Tracks) < int(trackCount) {
		track, ok, err := p.parseChunk()
		if err != nil {
			return nil, err
		}
		if ok {
			f.Tracks = append(f.Tracks, track)
		}
	}
	return f, nil
}

// parseChunk consumes one chunk. It returns ok=false for alien chunk types,
// which the SMF specification requires readers to skip.
func (p *parser) parseChunk() (Track, bool, error) {
	start := p.pos
	if p.pos+8 > len(p.data) {
		return Track{}, false, decodeErrf(start, ErrTruncatedStream, "expected a track chunk, %d bytes remain", len(p.data)-p.pos)
	}
	chunkType := string(p.data[p.pos : p.pos+4])
	length := int(binary.BigEndian.Uint32(p.data[p.pos+4 : p.pos+8]))
	p.pos += 8
	if p.pos+length > len(p.data) {
		return Track{}, false, decodeErrf(start, ErrTruncatedStream, "chunk %q declares %d bytes, %d remain", chunkType, length, len(p.data)-p.pos)
	}
	if chunkType != trackSignature {
		p.pos += length
		return Track{}, false, nil
	}
	track, err := p.parseTrackEvents(p.pos + length)
	if err != nil {
		return Track{}, false, err
	}
	return track, true, nil
}

// parseTrackEvents reads delta-time-prefixed events up to the chunk end
func (p *parser) parseTrackEvents(end int) (Track, error) {
	var track Track
	var tick uint32
	runningStatus := byte(0)

	for p.pos < end {
		delta, err := p.readVarLen(end)
		if err != nil {
			return Track{}, err
		}
		tick += delta

		if p.pos >= end {
			return Track{}, decodeErrf(p.pos, ErrTruncatedStream, "delta time with no following event")
		}
		status := p.data[p.pos]
		if status < 0x80 {
			// Running status: reuse the previous channel status byte.
			if runningStatus == 0 {
				return Track{}, &DecodeError{Offset: p.pos, Err: fmt.Errorf("data byte 0x%02x with no running status", status)}
			}
			status = runningStatus
		} else {
			p.pos++
		}

		switch {
		case status >= 0x80 && status <= 0x8F:
			runningStatus = status
			// The release velocity carries no musical information here.
			pitch, _, err := p.readDataPair(end)
			if err != nil {
				return Track{}, err
			}
			track.Events = append(track.Events, Event{Kind: NoteOff, Pitch: pitch, Tick: tick})

		case status >= 0x90 && status <= 0x9F:
			runningStatus = status
			pitch, velocity, err := p.readDataPair(end)
			if err != nil {
				return Track{}, err
			}
			if velocity == 0 {
				// Note-on with zero velocity is a note-off by convention.
				track.Events = append(track.Events, Event{Kind: NoteOff, Pitch: pitch, Tick: tick})
			} else {
				track.Events = append(track.Events, Event{Kind: NoteOn, Pitch: pitch, Velocity: velocity, Tick: tick})
			}

		case status >= 0xA0 && status <= 0xBF, status >= 0xE0 && status <= 0xEF:
			// Polyphonic aftertouch, control change, pitch bend: two data bytes.
			runningStatus = status
			if _, _, err := p.readDataPair(end); err != nil {
				return Track{}, err
			}

		case status >= 0xC0 && status <= 0xDF:
			// Program change, channel aftertouch: one data byte.
			runningStatus = status
			if _, err := p.readDataByte(end); err != nil {
				return Track{}, err
			}

		case status == 0xFF:
			runningStatus = 0
			metaType, err := p.readByte(end)
			if err != nil {
				return Track{}, err
			}
			metaLen, err := p.readVarLen(end)
			if err != nil {
				return Track{}, err
			}
			if p.pos+int(metaLen) > end {
				return Track{}, decodeErrf(p.pos, ErrTruncatedStream, "meta event 0x%02x declares %d bytes, %d remain in chunk", metaType, metaLen, end-p.pos)
			}
			p.pos += int(metaLen)
			if metaType == 0x2F {
				// End of track.
				p.pos = end
				return track, nil
			}

		case status == 0xF0 || status == 0xF7:
			runningStatus = 0
			sysexLen, err := p.readVarLen(end)
			if err != nil {
				return Track{}, err
			}
			if p.pos+int(sysexLen) > end {
				return Track{}, decodeErrf(p.pos, ErrTruncatedStream, "sysex declares %d bytes, %d remain in chunk", sysexLen, end-p.pos)
			}
			p.pos += int(sysexLen)

		default:
			return Track{}, &DecodeError{Offset: p.pos - 1, Err: fmt.Errorf("unexpected status byte 0x%02x", status)}
		}
	}
	return track, nil
}

// readVarLen reads a variable-length quantity, at most four bytes,
// stopping at the given chunk boundary
func (p *parser) readVarLen(end int) (uint32, error) {
	var value uint32
	for i := 0; i < 4; i++ {
		if p.pos >= end {
			return 0, decodeErrf(p.pos, ErrTruncatedStream, "variable-length quantity runs past chunk end")
		}
		b := p.data[p.pos]
		p.pos++
		value = value<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			return value, nil
		}
	}
	return 0, &DecodeError{Offset: p.pos, Err: fmt.Errorf("variable-length quantity exceeds four bytes")}
}

func (p *parser) readByte(end int) (byte, error) {
	if p.pos >= end {
		return 0, decodeErrf(p.pos, ErrTruncatedStream, "event data runs past chunk end")
	}
	b := p.data[p.pos]
	p.pos++
	return b, nil
}

func (p *parser) readDataByte(end int) (byte, error) {
	b, err := p.readByte(end)
	if err != nil {
		return 0, err
	}
	if b > 0x7F {
		return 0, &DecodeError{Offset: p.pos - 1, Err: fmt.Errorf("data byte 0x%02x has the status bit set", b)}
	}
	return b, nil
}

func (p *parser) readDataPair(end int) (byte, byte, error) {
	first, err := p.readDataByte(end)
	if err != nil {
		return 0, 0, err
	}
	second, err := p.readDataByte(end)
	if err != nil {
		return 0, 0, err
	}
	return first, second, nil
}
