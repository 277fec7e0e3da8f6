//go:build !cgo

package sink

// without cgo there is no rtmidi, so MIDI outputs cannot be opened
const driverAvailable = false
