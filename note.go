package cadence

import "math"

// DefaultSampleRate is CD-quality sample rate used when no rate is configured.
const DefaultSampleRate = 44100

// A4 is the standard tuning pitch.
const (
	a4Frequency    = 440.0
	a4Note         = 69
	notesPerOctave = 12
)

// NoteToHz converts MIDI note number to frequency. Note 69 is 440Hz.
func NoteToHz(note float64) float64 {
	return a4Frequency * math.Pow(2, (note-a4Note)/notesPerOctave)
}

// HzToNote converts frequency to MIDI note number. 440Hz is note 69.
func HzToNote(freq float64) float64 {
	return a4Note + notesPerOctave*math.Log2(freq/a4Frequency)
}
