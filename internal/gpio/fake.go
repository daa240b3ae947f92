package gpio

import "github.com/sweeney/bulb-driver/internal/color"

// FakeWriter is a test double that records written outputs.
type FakeWriter struct {
	// Writes contains every outputs value passed to Write.
	Writes []color.Outputs

	// WriteError, if set, will be returned by Write.
	WriteError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeWriter creates an empty FakeWriter.
func NewFakeWriter() *FakeWriter {
	return &FakeWriter{}
}

// Write records out.
func (f *FakeWriter) Write(out color.Outputs) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Writes = append(f.Writes, out)
	return nil
}

// Last returns the most recent write, and false if nothing was written.
func (f *FakeWriter) Last() (color.Outputs, bool) {
	if len(f.Writes) == 0 {
		return color.Outputs{}, false
	}
	return f.Writes[len(f.Writes)-1], true
}

// Close marks the writer as closed.
func (f *FakeWriter) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded writes.
func (f *FakeWriter) Reset() {
	f.Writes = nil
	f.WriteError = nil
	f.Closed = false
}
