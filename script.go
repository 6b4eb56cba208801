// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sockscript

import "fmt"

// Script builds read and write tables, numbering the entries in the order they
// are added.
type Script struct {
	reads   []MockRead
	writes  []MockWrite
	seq     int
	connect MockConnect
}

// NewScript returns an empty script that connects synchronously.
func NewScript() *Script {
	return &Script{}
}

// Connect scripts the connect outcome.
func (s *Script) Connect(mode Mode, err error) *Script {
	s.connect = MockConnect{Mode: mode, Err: err}
	return s
}

// Read adds a read returning data.
func (s *Script) Read(mode Mode, data string) *Script {
	return s.addRead(Read(mode, s.seq, data))
}

// ReadBytes adds a read returning data.
func (s *Script) ReadBytes(mode Mode, data []byte) *Script {
	return s.addRead(ReadBytes(mode, s.seq, data))
}

// ReadEOF adds the peer closing the stream.
func (s *Script) ReadEOF(mode Mode) *Script {
	return s.addRead(ReadEOF(mode, s.seq))
}

// ReadError adds a failed read.
func (s *Script) ReadError(mode Mode, err error) *Script {
	return s.addRead(ReadError(mode, s.seq, err))
}

// ReadHang adds a read that never completes.
func (s *Script) ReadHang() *Script {
	return s.addRead(ReadHang(s.seq))
}

// PeerCloseAfterNextRead marks the peer as gone after the next read.  It does
// not take a step.
func (s *Script) PeerCloseAfterNextRead() *Script {
	s.reads = append(s.reads, PeerCloseAfterNextRead())
	return s
}

// Write adds a write expecting data.
func (s *Script) Write(mode Mode, data string) *Script {
	return s.addWrite(Write(mode, s.seq, data))
}

// WriteBytes adds a write expecting data.
func (s *Script) WriteBytes(mode Mode, data []byte) *Script {
	return s.addWrite(WriteBytes(mode, s.seq, data))
}

// WriteError adds a failed write.
func (s *Script) WriteError(mode Mode, err error) *Script {
	return s.addWrite(WriteError(mode, s.seq, err))
}

// WriteAny adds a write accepting anything.
func (s *Script) WriteAny(mode Mode) *Script {
	return s.addWrite(WriteAny(mode, s.seq))
}

func (s *Script) addRead(r MockRead) *Script {
	s.reads = append(s.reads, r)
	s.seq++
	return s
}

func (s *Script) addWrite(w MockWrite) *Script {
	s.writes = append(s.writes, w)
	s.seq++
	return s
}

// Reads returns the read table.
func (s *Script) Reads() []MockRead {
	return s.reads
}

// Writes returns the write table.
func (s *Script) Writes() []MockWrite {
	return s.writes
}

// Steps returns the number of steps in the script.
func (s *Script) Steps() int {
	return s.seq
}

// ConnectData returns the scripted connect outcome.
func (s *Script) ConnectData() MockConnect {
	return s.connect
}

// Static returns a provider serving the script without sequencing.
func (s *Script) Static(opts ...Option) *StaticProvider {
	return NewStaticProvider(s.reads, s.writes, s.options(opts)...)
}

// Deterministic returns a provider driven by Run and RunFor.
func (s *Script) Deterministic(opts ...Option) *DeterministicProvider {
	return NewDeterministicProvider(s.reads, s.writes, s.options(opts)...)
}

// Sequenced returns a provider that advances through the loop.
func (s *Script) Sequenced(opts ...Option) *SequencedProvider {
	return NewSequencedProvider(s.reads, s.writes, s.options(opts)...)
}

func (s *Script) options(opts []Option) []Option {
	return append([]Option{WithConnect(s.connect)}, opts...)
}

// Step is one entry of a script placed on the time axis.
type Step struct {
	Seq   int
	Op    string
	Mode  Mode
	Index int
	Entry fmt.Stringer
}

func (s Step) String() string {
	return fmt.Sprintf("%3d %-5s #%d %s", s.Seq, s.Op, s.Index, s.Entry)
}

// Timeline merges the tables into step order.  It fails with ErrBadSequence
// unless every step from zero on is taken by exactly one entry, and each table
// is in increasing order.
func Timeline(reads []MockRead, writes []MockWrite) ([]Step, error) {
	steps := make([]Step, 0, len(reads)+len(writes))

	var r, w int
	for r < len(reads) || w < len(writes) {
		want := len(steps)

		if r < len(reads) && reads[r].isPeerCloseMarker() {
			r++
			continue
		}
		if r < len(reads) && reads[r].Seq == want {
			steps = append(steps, Step{Seq: want, Op: "read", Mode: reads[r].Mode, Index: r, Entry: reads[r]})
			r++
			continue
		}
		if w < len(writes) && writes[w].Seq == want {
			steps = append(steps, Step{Seq: want, Op: "write", Mode: writes[w].Mode, Index: w, Entry: writes[w]})
			w++
			continue
		}

		return steps, fmt.Errorf("%w: nothing scheduled for step %d (next read %s, next write %s)",
			ErrBadSequence, want, nextEntry(reads, r), nextEntry(writes, w))
	}

	return steps, nil
}

// VerifySequence checks that the tables cover every step exactly once.
func VerifySequence(reads []MockRead, writes []MockWrite) error {
	_, err := Timeline(reads, writes)
	return err
}

func nextEntry[T fmt.Stringer](entries []T, i int) string {
	if i < len(entries) {
		return entries[i].String()
	}
	return "none"
}
