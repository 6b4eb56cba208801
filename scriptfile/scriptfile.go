// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package scriptfile reads and writes scripts as YAML documents.
//
//	name: greeting
//	connect:
//	  mode: async
//	steps:
//	  - write: "HELLO\r\n"
//	  - read: "WELCOME\r\n"
//	    mode: async
//	  - read_hex: "00ff"
//	  - eof: true
//
// Steps take sequence numbers in the order they are listed.  A step holds
// exactly one action.  Steps are synchronous unless they say otherwise.
package scriptfile

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/xmidt-org/sockscript"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidYAML = errors.New("invalid YAML")
	ErrInvalidStep = errors.New("invalid step")
)

// File is a script document.
type File struct {
	Name        string   `yaml:"name,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Connect     *Connect `yaml:"connect,omitempty"`
	Steps       []Step   `yaml:"steps"`
}

// Connect is the scripted connect outcome.
type Connect struct {
	Mode  string `yaml:"mode,omitempty"`
	Error string `yaml:"error,omitempty"`
}

// Step is one scripted operation.
type Step struct {
	Seq  *int   `yaml:"seq,omitempty"`
	Mode string `yaml:"mode,omitempty"`

	Read      *string `yaml:"read,omitempty"`
	ReadHex   string  `yaml:"read_hex,omitempty"`
	EOF       bool    `yaml:"eof,omitempty"`
	ReadError string  `yaml:"read_error,omitempty"`
	Hang      bool    `yaml:"hang,omitempty"`
	PeerClose bool    `yaml:"peer_close,omitempty"`

	Write      *string `yaml:"write,omitempty"`
	WriteHex   string  `yaml:"write_hex,omitempty"`
	WriteAny   bool    `yaml:"write_any,omitempty"`
	WriteError string  `yaml:"write_error,omitempty"`
}

var namedErrors = []struct {
	name string
	err  error
}{
	{"closed", sockscript.ErrConnectionClosed},
	{"reset", sockscript.ErrConnectionReset},
	{"refused", sockscript.ErrConnectionRefused},
	{"not_connected", sockscript.ErrSocketNotConnected},
	{"unexpected", sockscript.ErrUnexpected},
}

// Errors returns the error names steps may use.
func Errors() []string {
	names := make([]string, 0, len(namedErrors))
	for _, ne := range namedErrors {
		names = append(names, ne.name)
	}
	return names
}

func errorByName(name string) (error, error) {
	for _, ne := range namedErrors {
		if ne.name == name {
			return ne.err, nil
		}
	}
	return nil, fmt.Errorf("unknown error name %q", name)
}

func nameOf(err error) (string, error) {
	for _, ne := range namedErrors {
		if errors.Is(err, ne.err) {
			return ne.name, nil
		}
	}
	return "", fmt.Errorf("error %q has no name", err)
}

func parseMode(s string) (sockscript.Mode, error) {
	switch s {
	case "", "sync":
		return sockscript.Sync, nil
	case "async":
		return sockscript.Async, nil
	}
	return sockscript.Sync, fmt.Errorf("unknown mode %q", s)
}

func modeName(m sockscript.Mode) string {
	if m == sockscript.Async {
		return "async"
	}
	return ""
}

// Parse decodes and validates a document.  Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var f File

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &f, nil
}

// Load reads and parses the document at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Marshal encodes f as YAML.
func Marshal(f *File) ([]byte, error) {
	if f == nil {
		return nil, errors.New("file cannot be nil")
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("failed to marshal to YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Validate checks every step and the resulting sequence.
func (f *File) Validate() error {
	reads, writes, _, err := f.Tables()
	if err != nil {
		return err
	}
	return sockscript.VerifySequence(reads, writes)
}

// Tables converts the document into read and write tables.  Steps without
// an explicit seq take the one after the previous step.
func (f *File) Tables() ([]sockscript.MockRead, []sockscript.MockWrite, sockscript.MockConnect, error) {
	var (
		reads  []sockscript.MockRead
		writes []sockscript.MockWrite
		next   int
	)

	mc, err := f.connect()
	if err != nil {
		return nil, nil, mc, err
	}

	for i, st := range f.Steps {
		seq := next
		if st.Seq != nil {
			seq = *st.Seq
		}

		r, w, err := st.entry(seq)
		if err != nil {
			return nil, nil, mc, fmt.Errorf("%w %d: %v", ErrInvalidStep, i, err)
		}

		switch {
		case r != nil:
			reads = append(reads, *r)
			if r.IsPeerClose() {
				continue
			}
		case w != nil:
			writes = append(writes, *w)
		}
		next = seq + 1
	}

	return reads, writes, mc, nil
}

// Script builds a script from the document.  Explicit sequence numbers must
// match the position of their step.
func (f *File) Script() (*sockscript.Script, error) {
	mc, err := f.connect()
	if err != nil {
		return nil, err
	}

	s := sockscript.NewScript().Connect(mc.Mode, mc.Err)
	for i, st := range f.Steps {
		if st.Seq != nil && *st.Seq != s.Steps() && !st.PeerClose {
			return nil, fmt.Errorf("%w %d: seq %d out of place, want %d", ErrInvalidStep, i, *st.Seq, s.Steps())
		}

		r, w, err := st.entry(s.Steps())
		if err != nil {
			return nil, fmt.Errorf("%w %d: %v", ErrInvalidStep, i, err)
		}

		switch {
		case r != nil && r.IsPeerClose():
			s.PeerCloseAfterNextRead()
		case r != nil && r.IsHang():
			s.ReadHang()
		case r != nil:
			addRead(s, *r)
		case w != nil:
			addWrite(s, *w)
		}
	}

	return s, nil
}

func addRead(s *sockscript.Script, r sockscript.MockRead) {
	switch v := r.Result.(type) {
	case sockscript.Payload:
		if len(v) == 0 {
			s.ReadEOF(r.Mode)
		} else {
			s.ReadBytes(r.Mode, v)
		}
	case sockscript.Status:
		s.ReadError(r.Mode, v.Err)
	}
}

func addWrite(s *sockscript.Script, w sockscript.MockWrite) {
	switch v := w.Result.(type) {
	case sockscript.Payload:
		s.WriteBytes(w.Mode, v)
	case sockscript.Status:
		if v.Err == nil {
			s.WriteAny(w.Mode)
		} else {
			s.WriteError(w.Mode, v.Err)
		}
	}
}

func (f *File) connect() (sockscript.MockConnect, error) {
	var mc sockscript.MockConnect
	if f.Connect == nil {
		return mc, nil
	}

	mode, err := parseMode(f.Connect.Mode)
	if err != nil {
		return mc, fmt.Errorf("connect: %w", err)
	}
	mc.Mode = mode

	if f.Connect.Error != "" {
		if mc.Err, err = errorByName(f.Connect.Error); err != nil {
			return mc, fmt.Errorf("connect: %w", err)
		}
	}
	return mc, nil
}

// entry converts the step.  Exactly one of the results is set.
func (st Step) entry(seq int) (*sockscript.MockRead, *sockscript.MockWrite, error) {
	mode, err := parseMode(st.Mode)
	if err != nil {
		return nil, nil, err
	}

	var (
		r       *sockscript.MockRead
		w       *sockscript.MockWrite
		actions int
	)

	setRead := func(v sockscript.MockRead) {
		actions++
		r = &v
	}
	setWrite := func(v sockscript.MockWrite) {
		actions++
		w = &v
	}

	if st.Read != nil {
		setRead(sockscript.Read(mode, seq, *st.Read))
	}
	if st.ReadHex != "" {
		b, err := hex.DecodeString(st.ReadHex)
		if err != nil {
			return nil, nil, fmt.Errorf("read_hex: %w", err)
		}
		setRead(sockscript.ReadBytes(mode, seq, b))
	}
	if st.EOF {
		setRead(sockscript.ReadEOF(mode, seq))
	}
	if st.ReadError != "" {
		e, err := errorByName(st.ReadError)
		if err != nil {
			return nil, nil, err
		}
		setRead(sockscript.ReadError(mode, seq, e))
	}
	if st.Hang {
		setRead(sockscript.ReadHang(seq))
	}
	if st.PeerClose {
		setRead(sockscript.PeerCloseAfterNextRead())
	}
	if st.Write != nil {
		setWrite(sockscript.Write(mode, seq, *st.Write))
	}
	if st.WriteHex != "" {
		b, err := hex.DecodeString(st.WriteHex)
		if err != nil {
			return nil, nil, fmt.Errorf("write_hex: %w", err)
		}
		setWrite(sockscript.WriteBytes(mode, seq, b))
	}
	if st.WriteAny {
		setWrite(sockscript.WriteAny(mode, seq))
	}
	if st.WriteError != "" {
		e, err := errorByName(st.WriteError)
		if err != nil {
			return nil, nil, err
		}
		setWrite(sockscript.WriteError(mode, seq, e))
	}

	if actions != 1 {
		return nil, nil, fmt.Errorf("want exactly one action, got %d", actions)
	}
	return r, w, nil
}

// FromTables describes the tables as a document.  The tables must be gap
// free; errors must be among the named ones.
func FromTables(mc sockscript.MockConnect, reads []sockscript.MockRead, writes []sockscript.MockWrite) (*File, error) {
	steps, err := sockscript.Timeline(reads, writes)
	if err != nil {
		return nil, err
	}

	var f File
	if mc.Mode != sockscript.Sync || mc.Err != nil {
		f.Connect = &Connect{Mode: modeName(mc.Mode)}
		if mc.Err != nil {
			if f.Connect.Error, err = nameOf(mc.Err); err != nil {
				return nil, err
			}
		}
	}

	for _, step := range steps {
		var st Step
		switch step.Op {
		case "read":
			if step.Index > 0 && reads[step.Index-1].IsPeerClose() {
				f.Steps = append(f.Steps, Step{PeerClose: true})
			}
			if st, err = readStep(reads[step.Index]); err != nil {
				return nil, err
			}
		case "write":
			if st, err = writeStep(writes[step.Index]); err != nil {
				return nil, err
			}
		}
		f.Steps = append(f.Steps, st)
	}

	return &f, nil
}

func readStep(r sockscript.MockRead) (Step, error) {
	st := Step{Mode: modeName(r.Mode)}

	switch v := r.Result.(type) {
	case sockscript.Payload:
		if len(v) == 0 {
			st.EOF = true
		} else if text, ok := printable(v); ok {
			st.Read = &text
		} else {
			st.ReadHex = hex.EncodeToString(v)
		}
	case sockscript.Status:
		if r.IsHang() {
			return Step{Hang: true}, nil
		}
		name, err := nameOf(v.Err)
		if err != nil {
			return st, err
		}
		st.ReadError = name
	}
	return st, nil
}

func writeStep(w sockscript.MockWrite) (Step, error) {
	st := Step{Mode: modeName(w.Mode)}

	switch v := w.Result.(type) {
	case sockscript.Payload:
		if text, ok := printable(v); ok {
			st.Write = &text
		} else {
			st.WriteHex = hex.EncodeToString(v)
		}
	case sockscript.Status:
		if v.Err == nil {
			st.WriteAny = true
			return st, nil
		}
		name, err := nameOf(v.Err)
		if err != nil {
			return st, err
		}
		st.WriteError = name
	}
	return st, nil
}

// printable reports whether b reads well as YAML text.
func printable(b []byte) (string, bool) {
	if len(b) == 0 || !utf8.Valid(b) {
		return "", false
	}
	for _, c := range string(b) {
		if c < 0x20 && c != '\r' && c != '\n' && c != '\t' {
			return "", false
		}
		if c == 0x7f {
			return "", false
		}
	}
	return string(b), true
}
