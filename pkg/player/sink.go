package player

// Sink receives the events of a playback session. Implementations need not
// be safe for concurrent use: a Player never calls a sink from two
// goroutines at once.
type Sink interface {
	NoteOn(pitch, velocity uint8) error
	NoteOff(pitch uint8) error
	AllNotesOff() error
}
