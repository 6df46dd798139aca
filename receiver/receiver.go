// Package receiver implements the byte-level state machine that partitions
// an untrusted transport stream into messages: binary DBF framed by
// BEGIN/END bytes, or ASCII text lines terminated by CR/LF. It has no
// knowledge of sub-code syntax or CRCs — that's package unserializer's job
// once a message is ready.
package receiver

import (
	"io"

	"github.com/mewkiz/pkg/dbg"
	"github.com/mewkiz/pkg/readerutil"
)

// state is the receiver's position in the framing state machine.
type state uint8

const (
	initial state = iota
	receivingTxt
	receivingMessage
	messageReady
	txtReceived
	dbfReceived
	dbfReceivedMoreExpected
	ignoreInput
	errorState
)

const (
	beginByte = 0x00
	endByte   = 0x01
)

// bufferSize is the fixed message buffer size.
const bufferSize = 1024

// DefaultTimeoutMS is the default message-inactivity timeout applied by
// Tick.
const DefaultTimeoutMS = 5000

// noiseQuiescenceMS is how long the line must stay silent while in
// IgnoreInput before the next byte is reinterpreted as a potential message
// start.
const noiseQuiescenceMS = 100

// Encoding reports the wire form of a completed message.
type Encoding int

const (
	Unknown Encoding = -1
	ASCII   Encoding = 0
	Binary  Encoding = 1
)

// Clock supplies the monotonic millisecond time source the receiver uses
// for its noise-quiescence and inactivity timeouts. SystemClock is the
// default; tests substitute a fake to make timeout behavior deterministic
// without sleeping.
type Clock interface {
	NowMS() int64
}

// Receiver accumulates one message at a time from a byte stream. It is
// single-owner and not safe for concurrent use: a typical deployment calls
// ProcessByte from an I/O callback and Tick from a timer callback
// serialized against it (never concurrently on the same instance).
type Receiver struct {
	buf       [bufferSize]byte
	size      int
	state     state
	timestamp int64
	clock     Clock
}

// New returns a Receiver using clock as its time source. Pass SystemClock{}
// in production; tests typically pass a fake.
func New(clock Clock) *Receiver {
	return &Receiver{clock: clock}
}

// Reset discards any partial message and returns to the initial state.
func (r *Receiver) Reset() {
	r.size = 0
	r.timestamp = 0
	r.state = initial
}

func (r *Receiver) isFull() bool {
	return r.size >= len(r.buf)
}

// storeByte appends b to the message buffer, returning false if it is full.
func (r *Receiver) storeByte(b byte) bool {
	if r.size < len(r.buf) {
		r.buf[r.size] = b
		r.size++
		return true
	}
	return false
}

func (r *Receiver) now() int64 {
	return r.clock.NowMS()
}

func (r *Receiver) enterInitial() {
	r.size = 0
	r.timestamp = 0
	r.state = initial
}

func (r *Receiver) enterReceivingTxt(ch byte) {
	r.storeByte(ch)
	r.timestamp = r.now()
	r.state = receivingTxt
}

func (r *Receiver) enterReceivingMessage() {
	r.size = 0
	r.timestamp = r.now()
	r.state = receivingMessage
}

func (r *Receiver) enterIgnoreInput() {
	r.size = 0
	r.timestamp = r.now()
	r.state = ignoreInput
}

// processFirstChar classifies the first byte of a new message: a BEGIN
// starts binary framing, a printable byte starts an ASCII line, anything
// else (outside 0x20..0x7E, CR/LF, TAB, BEGIN/END) is noise.
func (r *Receiver) processFirstChar(ch byte) {
	switch ch {
	case beginByte:
		r.enterReceivingMessage()
	case endByte, '\r', '\n':
		r.size = 0
		r.timestamp = 0
	case '\t':
		r.enterReceivingTxt(ch)
	default:
		r.size = 0
		if ch >= ' ' && ch <= '~' {
			r.enterReceivingTxt(ch)
		} else {
			dbg.Println("receiver: unexpected byte, entering noise mode", ch)
			r.enterIgnoreInput()
		}
	}
}

// processNoise implements the IgnoreInput state: wait for the line to be
// silent for noiseQuiescenceMS before reinterpreting the next byte as a
// fresh message start.
func (r *Receiver) processNoise(ch byte) {
	if ch == beginByte {
		r.enterReceivingMessage()
		return
	}
	d := r.now() - r.timestamp
	switch {
	case d > noiseQuiescenceMS:
		r.processFirstChar(ch)
	case (ch >= ' ' && ch <= '~') || ch == '\n' || ch == '\r' || ch == '\t':
		// keep ignoring input
	default:
		r.timestamp = r.now()
	}
}

// ProcessByte feeds one byte to the receiver. It returns 0 if the message
// is not yet complete, a positive length when a message (binary or ASCII)
// has just become ready, or a negative value on a protocol error (a byte
// arrived while the previous message was still waiting to be consumed via
// Reset).
func (r *Receiver) ProcessByte(ch byte) int {
	switch r.state {
	case initial:
		r.processFirstChar(ch)
		return 0

	case receivingTxt:
		switch ch {
		case endByte:
			r.enterInitial()
			return 0
		case beginByte:
			dbg.Println("receiver: DBF begin while receiving txt")
			r.enterReceivingMessage()
			return 0
		case '\r', '\n':
			if r.size < len(r.buf) {
				r.state = txtReceived
			} else {
				dbg.Println("receiver: txt buffer full")
			}
			return r.size
		default:
			if ch < ' ' || ch > '~' {
				r.enterIgnoreInput()
				return 0
			}
			r.storeByte(ch)
			r.timestamp = r.now()
			if r.isFull() {
				r.state = txtReceived
				return r.size
			}
			return 0
		}

	case receivingMessage:
		switch ch {
		case beginByte:
			if r.size == 0 {
				return 0
			}
			r.state = dbfReceivedMoreExpected
			return r.size
		case endByte:
			if r.size == 0 {
				r.enterInitial()
				return 0
			}
			r.state = dbfReceived
			return r.size
		default:
			if !r.storeByte(ch) {
				dbg.Println("receiver: message buffer full, discarding")
				r.enterInitial()
			}
			return 0
		}

	case ignoreInput:
		r.processNoise(ch)
		return 0

	default:
		// txtReceived, dbfReceived, dbfReceivedMoreExpected, messageReady,
		// errorState: the caller must consume the ready message and Reset
		// before feeding more bytes.
		dbg.Println("receiver: byte arrived in a terminal state without reset")
		r.size = 0
		return -1
	}
}

// CheckTimeout forces a return to the initial state if a partial binary
// message has aged past timeoutMS since its BEGIN byte, or a noise burst
// past timeoutMS since its last noise byte. A partial ASCII line is not
// timed out.
func (r *Receiver) CheckTimeout(timeoutMS int64) {
	switch r.state {
	case receivingMessage, ignoreInput:
		if r.now()-r.timestamp > timeoutMS {
			if r.size != 0 {
				dbg.Println("receiver: timeout, discarding partial message")
				r.size = 0
			}
			r.enterInitial()
		}
	}
}

// Tick applies DefaultTimeoutMS. Call it periodically from a timer,
// serialized against ProcessByte.
func (r *Receiver) Tick() {
	r.CheckTimeout(DefaultTimeoutMS)
}

// IsDBF reports whether a complete binary message is ready to be consumed.
func (r *Receiver) IsDBF() bool {
	return r.state == dbfReceived || r.state == dbfReceivedMoreExpected
}

// IsText reports whether a complete ASCII line is ready to be consumed.
func (r *Receiver) IsText() bool {
	return r.state == txtReceived
}

// Encoding reports the wire form of the message currently held, or Unknown
// if none is ready.
func (r *Receiver) Encoding() Encoding {
	switch r.state {
	case dbfReceived, dbfReceivedMoreExpected, messageReady:
		return Binary
	case txtReceived:
		return ASCII
	default:
		return Unknown
	}
}

// Bytes returns the completed message's payload. For a binary message this
// is the raw sub-code bytes between BEGIN and END; for a text message it is
// the line's bytes with the trailing CR/LF stripped (and, if the buffer
// filled before a line terminator arrived, truncated to capacity). The
// returned slice aliases the receiver's internal buffer and is only valid
// until the next ProcessByte or Reset call.
func (r *Receiver) Bytes() []byte {
	return r.buf[:r.size]
}

// ReadFrame reads bytes one at a time from src (via readerutil.ReadByte,
// the same single-byte-at-a-time helper package meta uses to pull a byte
// off a metadata stream) until a complete message is framed or src returns
// an error. It returns the message length (as ProcessByte would), or 0 and
// src's error (io.EOF once src is exhausted); a partial message still pending
// at that point is left in the receiver as it is.
func (r *Receiver) ReadFrame(src io.Reader) (int, error) {
	for {
		ch, err := readerutil.ReadByte(src)
		if err != nil {
			return 0, err
		}
		if n := r.ProcessByte(ch); n != 0 {
			return n, nil
		}
	}
}
