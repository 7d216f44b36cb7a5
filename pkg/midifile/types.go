// Package midifile provides reading and writing of Standard MIDI Files
package midifile

import "sort"

// EventKind identifies the type of a note event
type EventKind uint8

const (
	// NoteOn starts a note
	NoteOn EventKind = iota
	// NoteOff ends a note
	NoteOff
)

func (k EventKind) String() string {
	switch k {
	case NoteOn:
		return "note_on"
	case NoteOff:
		return "note_off"
	default:
		return "unknown"
	}
}

// Event is a single note event at an absolute tick position
type Event struct {
	Kind     EventKind
	Pitch    uint8  // MIDI note number (0-127)
	Velocity uint8  // Note-on velocity (0-127), 0 for note-off
	Tick     uint32 // Absolute time in ticks from the start of the track
}

// Track is a time-ordered sequence of events
type Track struct {
	Events []Event
}

// File holds the decoded contents of a Standard MIDI File
type File struct {
	Format          uint16 // SMF format (0 or 1)
	TicksPerQuarter uint16 // Resolution from the header division field
	Tracks          []Track
}

// NewFile creates a File with the given resolution and no tracks
func NewFile(ticksPerQuarter uint16) *File {
	return &File{
		Format:          0,
		TicksPerQuarter: ticksPerQuarter,
	}
}

// MergedTrack combines the note events of every track into a single
// time-ordered track. At equal ticks, note-offs sort before note-ons so a
// retriggered pitch releases before it restarts.
func (f *File) MergedTrack() Track {
	var merged Track
	for _, t := range f.Tracks {
		merged.Events = append(merged.Events, t.Events...)
	}
	sort.SliceStable(merged.Events, func(i, j int) bool {
		a, b := merged.Events[i], merged.Events[j]
		if a.Tick != b.Tick {
			return a.Tick < b.Tick
		}
		if a.Kind != b.Kind {
			return a.Kind == NoteOff
		}
		return a.Pitch < b.Pitch
	})
	return merged
}
