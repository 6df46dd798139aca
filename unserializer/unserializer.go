// Package unserializer implements the streaming decoder half of the codec:
// given a byte slice produced by package serializer (or hand-written ASCII
// input), it walks the message code by code, exposing a pull-style API
// where the caller asks "what's next" and reads accordingly.
package unserializer

import (
	"github.com/mewkiz/dbf/internal/ascii"
	"github.com/mewkiz/dbf/internal/crc"
	"github.com/mewkiz/dbf/internal/subcode"
	"github.com/mewkiz/dbf/receiver"
	"github.com/mewkiz/dbf/serializer"
	"github.com/mewkiz/pkg/dbg"
)

// state is the decoder's current notion of what the next Read-family call
// should expect to find.
type state uint8

const (
	nextIsInteger state = iota
	nextIsWord
	nextIsString
	endOfMsg
	asciiNumber
	asciiWord
	asciiString
)

// CRCResult reports the outcome of checking (or skipping) a trailing CRC
// code when a message is first unserialized.
type CRCResult int

const (
	// OKCRC: a CRC code was present and matched the computed checksum.
	OKCRC CRCResult = iota
	// NoCRC: no CRC check was performed, either because the caller asked for
	// an uncheck constructor or because the source (e.g. a binary-encoded
	// receiver capture) is never checked by design.
	NoCRC
	// BadCRC: a CRC code was present but did not match, or the source could
	// not be interpreted as a DBF message at all.
	BadCRC
)

func (r CRCResult) String() string {
	switch r {
	case OKCRC:
		return "ok"
	case NoCRC:
		return "none"
	case BadCRC:
		return "bad"
	default:
		return "unknown"
	}
}

// Unserializer walks a borrowed byte slice. It is single-owner and not safe
// for concurrent use; borrowed bytes must not be mutated by the caller while
// in use.
type Unserializer struct {
	msg     []byte
	readPos int
	state   state

	// currentCode/repeatCounter implement binary-mode repetition unfolding:
	// a REP code replays currentCode repeatCounter more times before the
	// decoder advances past it.
	currentCode   int64
	repeatCounter int64
}

// NewNoCRC wraps msg for binary decoding without checking (or expecting) a
// trailing CRC code.
func NewNoCRC(msg []byte) *Unserializer {
	u := &Unserializer{msg: msg, state: nextIsInteger}
	u.takeSpecial()
	return u
}

// NewTakeCRC wraps msg for binary decoding, first validating and then
// stripping a trailing CRC code. On any result other than OKCRC the returned
// Unserializer is left at end-of-message with no content.
func NewTakeCRC(msg []byte) (*Unserializer, CRCResult) {
	u := NewNoCRC(msg)
	result := u.ReadCRC()
	if result != OKCRC {
		u.msg = u.msg[:0]
		u.readPos = 0
		u.state = endOfMsg
	}
	return u, result
}

// NewFromSerializer borrows s's buffer and begins binary decoding. It does
// not check for a CRC; call NewTakeCRC on s.Bytes() directly if the message
// is expected to carry one.
func NewFromSerializer(s *serializer.Serializer) *Unserializer {
	return NewNoCRC(s.Bytes())
}

// NewASCII wraps msg for ASCII-mirror decoding.
func NewASCII(msg []byte) *Unserializer {
	u := &Unserializer{msg: msg, state: asciiNumber}
	u.takeAsciiSpace()
	return u
}

// NewASCIIFromSerializer borrows s's buffer and begins ASCII-mirror
// decoding.
func NewASCIIFromSerializer(s *serializer.Serializer) *Unserializer {
	return NewASCII(s.Bytes())
}

// NewFromReceiver wraps a completed receiver message, dispatching to binary
// or ASCII decoding per the receiver's own classification. Binary messages
// are deliberately not CRC-checked here (matching the reference
// implementation, which trusts the receiver's framing over re-validating
// a CRC the caller can check explicitly via ReadCRC); a receiver with no
// message ready yields an empty, already-at-end-of-message Unserializer and
// BadCRC.
func NewFromReceiver(r *receiver.Receiver) (*Unserializer, CRCResult) {
	switch r.Encoding() {
	case receiver.Binary:
		return NewNoCRC(r.Bytes()), NoCRC
	case receiver.ASCII:
		return NewASCII(r.Bytes()), NoCRC
	default:
		return &Unserializer{state: endOfMsg}, BadCRC
	}
}

// Copy returns an independent Unserializer positioned at the same point in
// the same underlying bytes. Used internally by StringLength to peek ahead
// without consuming, and available to callers that need a checkpoint to
// rewind to.
func (u *Unserializer) Copy() *Unserializer {
	c := *u
	return &c
}

// takeNextCode decodes the code starting at u.readPos and advances readPos
// past it.
func (u *Unserializer) takeNextCode() int64 {
	next := subcode.FindNext(u.msg, u.readPos)
	code := subcode.DecodeBackward(u.msg, next)
	u.readPos = next
	return code
}

// takeSpecial advances past any FMTCRC/REP codes at the current position,
// updating state (on a format switch) or repeatCounter (on a repetition),
// until it reaches a value-bearing code, end of message, or something it
// does not recognize. Mirrors DbfUnserializerTakeSpecial.
func (u *Unserializer) takeSpecial() {
	for u.repeatCounter == 0 {
		if u.readPos >= len(u.msg) {
			u.state = endOfMsg
			return
		}
		switch subcode.ClassOf(u.msg[u.readPos]) {
		case subcode.Pint, subcode.Nint:
			return
		case subcode.FmtCrc:
			code := u.takeNextCode()
			switch subcode.FormatCode(code) {
			case subcode.FormatInt:
				u.state = nextIsInteger
			case subcode.FormatWord:
				u.state = nextIsWord
			case subcode.FormatStr:
				u.state = nextIsString
			default:
				dbg.Println("unserializer: unknown format code", code)
				u.state = endOfMsg
			}
			u.currentCode = 0
		case subcode.Rep:
			u.repeatCounter = u.takeNextCode()
			return
		default:
			// Ext with no preceding start code, a reserved byte, or a stray
			// BEGIN/END: the payload decode table has no entry for any of
			// these, so treat them the same as "nothing" and stop here.
			dbg.Println("unserializer: unexpected code at", u.readPos)
			return
		}
	}
}

// takeAsciiSpace skips non-graphical bytes (the ASCII-mode separator) and
// classifies the byte that follows, setting state accordingly. Mirrors
// DbfUnserializerTakeAsciiSpace.
func (u *Unserializer) takeAsciiSpace() {
	for u.readPos < len(u.msg) && !ascii.IsGraph(u.msg[u.readPos]) {
		u.readPos++
	}
	if u.readPos >= len(u.msg) {
		u.state = endOfMsg
		return
	}
	ch := u.msg[u.readPos]
	switch {
	case ch == '-' || (ch >= '0' && ch <= '9'):
		u.state = asciiNumber
	case ch == '"':
		u.readPos++
		u.state = asciiString
	case ascii.IsWordChar(ch):
		u.state = asciiWord
	default:
		dbg.Println("unserializer: unrecognized ascii token start", ch)
		u.state = endOfMsg
	}
}

// IsNextInt reports whether the next value is an integer.
func (u *Unserializer) IsNextInt() bool {
	return u.state == nextIsInteger || u.state == asciiNumber
}

// IsNextString reports whether the next value is a word or string.
func (u *Unserializer) IsNextString() bool {
	switch u.state {
	case nextIsWord, nextIsString, asciiWord, asciiString:
		return true
	default:
		return false
	}
}

// IsNextEnd reports whether the message has been fully consumed.
func (u *Unserializer) IsNextEnd() bool {
	return u.state == endOfMsg
}

// ReadInt64 reads the next integer value. If the decoder is not currently
// expecting an integer it logs and returns -1 without consuming anything. A
// malformed code where an integer was expected logs, drops the decoder to
// end-of-message, and returns a best-effort 0.
func (u *Unserializer) ReadInt64() int64 {
	switch u.state {
	case asciiNumber:
		v, n := ascii.ParseInt(string(u.msg[u.readPos:]))
		u.readPos += n
		for u.readPos < len(u.msg) && ascii.IsNumberChar(u.msg[u.readPos]) {
			u.readPos++
		}
		u.takeAsciiSpace()
		return v
	case nextIsInteger:
		if u.repeatCounter > 0 {
			u.repeatCounter--
			v := u.currentCode
			u.takeSpecial()
			return v
		}
		switch subcode.ClassOf(u.msg[u.readPos]) {
		case subcode.Pint:
			v := u.takeNextCode()
			u.currentCode = v
			u.takeSpecial()
			return v
		case subcode.Nint:
			v := -1 - u.takeNextCode()
			u.currentCode = v
			u.takeSpecial()
			return v
		default:
			dbg.Println("unserializer: expected integer code")
			u.currentCode = 0
			u.state = endOfMsg
			u.takeSpecial()
			return 0
		}
	default:
		dbg.Println("unserializer: not an integer")
		return -1
	}
}

// ReadInt32 reads the next integer value truncated to 32 bits.
func (u *Unserializer) ReadInt32() int32 {
	return int32(u.ReadInt64())
}

// nextToken consumes and returns the raw bytes of the next word or string
// value (unquoted, unescaped to their literal byte values), advancing the
// decoder past it. The bool result is false if the decoder was not
// expecting a string-shaped value at all.
func (u *Unserializer) nextToken() ([]byte, bool) {
	switch u.state {
	case asciiNumber:
		start := u.readPos
		_, n := ascii.ParseInt(string(u.msg[u.readPos:]))
		u.readPos += n
		for u.readPos < len(u.msg) && ascii.IsNumberChar(u.msg[u.readPos]) {
			u.readPos++
		}
		out := append([]byte(nil), u.msg[start:u.readPos]...)
		u.takeAsciiSpace()
		return out, true
	case asciiWord:
		start := u.readPos
		for u.readPos < len(u.msg) && ascii.IsWordChar(u.msg[u.readPos]) {
			u.readPos++
		}
		out := append([]byte(nil), u.msg[start:u.readPos]...)
		u.takeAsciiSpace()
		return out, true
	case asciiString:
		var out []byte
		for {
			if u.readPos >= len(u.msg) {
				u.takeAsciiSpace()
				return out, true
			}
			ch := u.msg[u.readPos]
			u.readPos++
			if ch == '"' {
				u.takeAsciiSpace()
				return out, true
			}
			if ch != '\\' {
				out = append(out, ch)
				continue
			}
			if u.readPos >= len(u.msg) {
				dbg.Println("unserializer: truncated escape sequence")
				u.state = endOfMsg
				return out, true
			}
			x := u.msg[u.readPos]
			u.readPos++
			if x != 'x' || u.readPos+2 > len(u.msg) {
				dbg.Println("unserializer: unsupported escape sequence")
				u.state = endOfMsg
				return out, true
			}
			hi := ascii.DecodeHexDigit(u.msg[u.readPos])
			lo := ascii.DecodeHexDigit(u.msg[u.readPos+1])
			u.readPos += 2
			if hi < 0 || lo < 0 {
				dbg.Println("unserializer: invalid hex digit in escape sequence")
				u.state = endOfMsg
				return out, true
			}
			out = append(out, byte(hi<<4|lo))
		}
	case nextIsWord, nextIsString:
		var out []byte
		for u.state == nextIsWord || u.state == nextIsString {
			if u.readPos >= len(u.msg) {
				u.state = endOfMsg
				return out, true
			}
			switch subcode.ClassOf(u.msg[u.readPos]) {
			case subcode.Pint:
				u.currentCode = subcode.CharOffset + u.takeNextCode()
				out = append(out, byte(u.currentCode))
			case subcode.Nint:
				u.currentCode = subcode.CharOffset - 1 - u.takeNextCode()
				out = append(out, byte(u.currentCode))
			case subcode.Rep:
				n := u.takeNextCode()
				for ; n > 0; n-- {
					out = append(out, byte(u.currentCode))
				}
				u.repeatCounter = 0
			case subcode.FmtCrc:
				u.takeSpecial()
				return out, true
			default:
				dbg.Println("unserializer: unexpected code in word/string")
				u.takeSpecial()
				return out, true
			}
		}
		return out, true
	default:
		dbg.Println("unserializer: not a string")
		return nil, false
	}
}

// Read copies the next word or string value into buf, returning its logical
// length (which may exceed len(buf); the copy truncates rather than
// overflowing buf). A binary-mode string value is bracketed with `"` in the
// copy; a word, or an ASCII-mode value of either kind, is not (ASCII string
// input already had its quotes stripped by the decoder, and is not expected
// to be re-quoted by Read). Returns -1 without consuming anything if the
// decoder was not expecting a string-shaped value.
func (u *Unserializer) Read(buf []byte) int {
	wasString := u.state == nextIsString
	data, ok := u.nextToken()
	if !ok {
		return -1
	}
	n := 0
	put := func(b byte) {
		if n < len(buf) {
			buf[n] = b
		}
		n++
	}
	if wasString {
		put('"')
	}
	for _, b := range data {
		put(b)
	}
	if wasString {
		put('"')
	}
	return n
}

// StringLength reports the logical length Read would copy for the next
// value, without consuming it. Unlike Read's output this never counts
// bracketing quotes. Returns 32 without peeking if the decoder is currently
// expecting a plain binary integer (matches DbfUnserializerStringLength's
// fixed placeholder for that state), or -1 if the decoder is at end of
// message or otherwise not on a readable value.
func (u *Unserializer) StringLength() int {
	if u.state == nextIsInteger {
		return 32
	}
	peek := u.Copy()
	data, ok := peek.nextToken()
	if !ok {
		return -1
	}
	return len(data)
}

// ReadCRC locates, validates and strips a trailing FMTCRC code from the
// remaining buffer, comparing it against the CRC-32 of everything before
// it. Safe to call on a message with no CRC code at all (returns NoCRC) or
// an empty message (returns NoCRC).
func (u *Unserializer) ReadCRC() CRCResult {
	if len(u.msg) == 0 {
		return NoCRC
	}
	begin := subcode.FindBeginOfCode(u.msg, len(u.msg))
	if subcode.ClassOf(u.msg[begin]) != subcode.FmtCrc {
		return NoCRC
	}
	want := uint32(subcode.DecodeBackward(u.msg, len(u.msg)))
	u.msg = u.msg[:begin]
	if u.readPos > len(u.msg) {
		u.readPos = len(u.msg)
	}
	got := crc.Checksum(u.msg)
	if got != want {
		return BadCRC
	}
	return OKCRC
}

// ToSerializer transcodes exactly the next value from u into dst, dispatching
// to WriteInt64, WriteWord or WriteString as appropriate, and returns the
// number of values transcoded (0 at end of message, -1 on an unreadable
// decoder state). Rather than streaming raw bytes straight onto dst, this
// buffers the full token through the high-level Write API, so the result is
// correct regardless of dst's mode.
func (u *Unserializer) ToSerializer(dst *serializer.Serializer) int {
	switch u.state {
	case nextIsInteger, asciiNumber:
		dst.WriteInt64(u.ReadInt64())
		return 1
	case nextIsWord, asciiWord:
		data, ok := u.nextToken()
		if !ok {
			return -1
		}
		dst.WriteWord(string(data))
		return 1
	case nextIsString, asciiString:
		data, ok := u.nextToken()
		if !ok {
			return -1
		}
		dst.WriteString(string(data))
		return 1
	case endOfMsg:
		return 0
	default:
		dbg.Println("unserializer: illegal state for transcoding")
		u.state = endOfMsg
		return -1
	}
}

// ToSerializerAll transcodes every remaining value from u into dst, in
// order, stopping at end of message or the first unreadable decoder state.
// It returns the number of values transcoded.
func (u *Unserializer) ToSerializerAll(dst *serializer.Serializer) int {
	count := 0
	for !u.IsNextEnd() {
		n := u.ToSerializer(dst)
		if n <= 0 {
			break
		}
		count += n
	}
	return count
}
