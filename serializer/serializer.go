// Package serializer implements the streaming encoder half of the codec: a
// growable byte buffer plus an encoder state tracking the semantic class of
// value currently being written (integer, word, string, or ASCII mirror).
// Runs of identical integer values (including the per-character codes of a
// word or string) are folded into a single repetition code.
package serializer

import (
	"strconv"

	"github.com/mewkiz/dbf/internal/ascii"
	"github.com/mewkiz/dbf/internal/crc"
	"github.com/mewkiz/dbf/internal/subcode"
	"github.com/mewkiz/pkg/dbg"
)

// state is the encoder's current notion of what kind of value is being
// written.
type state uint8

const (
	idle state = iota
	encodingInt
	encodingWord
	asciiMode
	errorState
)

// initialCapacity is the growable buffer's starting size.
const initialCapacity = 256

// Serializer appends one finished message to an internal buffer, value by
// value. It is single-owner and not safe for concurrent use. The zero value
// is not usable; construct one with New, NewFixed, NewASCII or
// NewWithSeparator.
type Serializer struct {
	buf      []byte
	fixedCap int
	state    state

	// prevCode/repeatCounter implement binary-mode repetition folding: a run
	// of WriteInt64 calls with an unchanged value accumulates in
	// repeatCounter instead of emitting a code per call. havePrevCode
	// distinguishes "no value written yet" from "the last value written was
	// 0", since prevCode alone can't: without it, a literal first
	// WriteInt64(0) would be mistaken for a repeat of a phantom zero.
	prevCode      int64
	havePrevCode  bool
	repeatCounter int64

	// separator is an ASCII-mode-only field, kept distinct from the
	// binary-mode fields above rather than overloaded onto prevCode.
	separator byte
}

// New returns a Serializer with a growable buffer, starting in binary mode.
func New() *Serializer {
	return &Serializer{buf: make([]byte, 0, initialCapacity)}
}

// NewFixed returns a Serializer backed by a buffer that never grows past
// capacity bytes; once full, further writes are no-ops and Err reports true.
func NewFixed(capacity int) *Serializer {
	return &Serializer{buf: make([]byte, 0, capacity), fixedCap: capacity}
}

// NewASCII returns a Serializer in ASCII-mirror mode using ' ' as the
// separator between values.
func NewASCII() *Serializer {
	return NewWithSeparator(' ')
}

// NewWithSeparator returns a Serializer in ASCII-mirror mode using sep as
// the separator between values.
func NewWithSeparator(sep byte) *Serializer {
	return &Serializer{buf: make([]byte, 0, initialCapacity), state: asciiMode, separator: sep}
}

// Reset clears the serializer for reuse without reallocating its buffer.
// Always returns to binary idle state, even if the serializer was
// previously in ASCII mode.
func (s *Serializer) Reset() {
	s.buf = s.buf[:0]
	s.state = idle
	s.prevCode = 0
	s.havePrevCode = false
	s.repeatCounter = 0
}

// Err reports whether the serializer has entered its terminal error state
// (fixed-capacity buffer overflow). Once true, all further writes are
// no-ops.
func (s *Serializer) Err() bool {
	return s.state == errorState
}

// Len returns the number of bytes written so far.
func (s *Serializer) Len() int {
	return len(s.buf)
}

func (s *Serializer) putByte(b byte) {
	if s.state == errorState {
		return
	}
	if s.fixedCap > 0 && len(s.buf) >= s.fixedCap {
		dbg.Println("serializer: buffer full")
		s.state = errorState
		return
	}
	s.buf = append(s.buf, b)
}

func (s *Serializer) appendCode(class subcode.Class, value uint64) {
	if s.state == errorState {
		return
	}
	before := len(s.buf)
	s.buf = subcode.Append(s.buf, class, value)
	if s.fixedCap > 0 && len(s.buf) > s.fixedCap {
		s.buf = s.buf[:before]
		dbg.Println("serializer: buffer full")
		s.state = errorState
	}
}

func (s *Serializer) writeRepeat() {
	if s.repeatCounter > 0 {
		s.appendCode(subcode.Rep, uint64(s.repeatCounter))
		s.repeatCounter = 0
		s.prevCode = 0
		s.havePrevCode = false
	}
}

// writeCode64 folds a repeated value into repeatCounter, otherwise flushes
// any pending repeat and emits the new value as PINT (non-negative) or NINT
// (negative, biased by -1-i so that -1 also fits in one byte).
func (s *Serializer) writeCode64(i int64) {
	if s.havePrevCode && i == s.prevCode {
		s.repeatCounter++
		return
	}
	s.writeRepeat()
	if i >= 0 {
		s.appendCode(subcode.Pint, uint64(i))
	} else {
		s.appendCode(subcode.Nint, uint64(-1-i))
	}
	s.prevCode = i
	s.havePrevCode = true
}

// WriteInt64 writes a signed 64-bit integer, switching the encoder to
// integer mode first (emitting a format-switch code) if needed.
func (s *Serializer) WriteInt64(i int64) {
	switch s.state {
	case encodingInt:
		// already writing integers, nothing to switch
	case idle:
		s.state = encodingInt
	case errorState:
		return
	case asciiMode:
		s.writeASCIINumber(i)
		return
	default:
		s.writeRepeat()
		s.appendCode(subcode.FmtCrc, uint64(subcode.FormatInt))
		s.havePrevCode = false
		s.state = encodingInt
	}
	s.writeCode64(i)
}

// WriteInt32 writes a signed 32-bit integer.
func (s *Serializer) WriteInt32(i int32) {
	s.WriteInt64(int64(i))
}

func (s *Serializer) writeASCIINumber(i int64) {
	if len(s.buf) != 0 {
		s.putByte(s.separator)
	}
	s.buf = strconv.AppendInt(s.buf, i, 10)
}

// writeToken implements the shared word/string-write algorithm: a
// format-switch code followed by one integer code per character (offset by
// subcode.CharOffset so that common printable characters fit in a single
// PINT/NINT byte), in binary mode; separator-plus-raw-bytes (quoted and
// \xHH-escaped for strings) in ASCII mode.
func (s *Serializer) writeToken(data []byte, code subcode.FormatCode) {
	switch s.state {
	case errorState:
		return
	case asciiMode:
		if len(s.buf) != 0 {
			s.putByte(s.separator)
		}
		if code == subcode.FormatStr {
			s.putByte('"')
			for _, ch := range data {
				if ascii.IsPrint(ch) && ch != '"' && ch != '\\' {
					s.putByte(ch)
				} else {
					s.putByte('\\')
					s.putByte('x')
					s.putByte(ascii.EncodeHexDigit(ch >> 4))
					s.putByte(ascii.EncodeHexDigit(ch & 0xF))
				}
			}
			s.putByte('"')
		} else {
			s.buf = append(s.buf, data...)
		}
	default:
		s.writeRepeat()
		s.appendCode(subcode.FmtCrc, uint64(code))
		s.havePrevCode = false
		// The encoder state is left as "encoding word" for both words and
		// strings at this point; the FMTCRC payload already recorded which
		// of the two it is.
		s.state = encodingWord
		for _, ch := range data {
			s.writeCode64(int64(ch) - subcode.CharOffset)
		}
	}
}

// WriteWord writes str as an unquoted word. Only the leading run of str
// that consists of printable, non-whitespace, non-quote, non-backslash
// bytes is written — trailing content past the first disallowed byte is
// dropped, matching the reference's word_length-based truncation. A
// zero-length word is not allowed; an empty string value is written in its
// place.
func (s *Serializer) WriteWord(str string) {
	n := ascii.WordLength(str)
	if n == 0 {
		dbg.Println("serializer: zero length word is not allowed")
		s.writeToken(nil, subcode.FormatStr)
		return
	}
	s.writeToken([]byte(str[:n]), subcode.FormatWord)
}

// WriteString writes str as an arbitrary 7-bit ASCII string. In ASCII mode
// the output is bracketed by double quotes with non-printable bytes, `"`
// and `\` hex-escaped as \xHH.
func (s *Serializer) WriteString(str string) {
	s.writeToken([]byte(str), subcode.FormatStr)
}

// WriteCRC flushes any pending repetition and appends a FMTCRC code whose
// payload is the CRC-32 of all bytes written so far. Must be the last
// operation before reading the message out with Bytes. CRC is a binary-mode
// concept; on an ASCII-mode serializer this is equivalent to Finalize.
func (s *Serializer) WriteCRC() {
	if s.state == errorState || s.state == asciiMode {
		return
	}
	s.writeRepeat()
	s.appendCode(subcode.FmtCrc, uint64(crc.Checksum(s.buf)))
}

// Finalize flushes any pending repetition without attaching a CRC. No-op in
// ASCII mode, where every WriteWord/WriteString/WriteInt64 call already
// leaves the buffer in a complete state.
func (s *Serializer) Finalize() {
	if s.state == errorState || s.state == asciiMode {
		return
	}
	s.writeRepeat()
}

// Bytes returns the finalized message. WriteCRC or Finalize must be called
// first.
func (s *Serializer) Bytes() []byte {
	return s.buf
}
