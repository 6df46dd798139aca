// Package dbf implements the Debuggable Binary Format: a self-describing,
// variable-length binary wire format together with a streaming encoder
// (package serializer), a streaming decoder (package unserializer) and a
// framed-stream receiver (package receiver).
//
// Sub-code prefix table. Every byte on the wire is classified by the
// position of its highest set bit:
//
//	1xxxxxxx  EXT      continuation byte, 7 payload bits
//	01xxxxxx  PINT     non-negative integer start, 6 payload bits
//	001xxxxx  NINT     negative integer start (value = -1-n), 5 payload bits
//	0001xxxx  FMTCRC   format switch, or trailing CRC-32, 4 payload bits
//	00001xxx  REP      repetition count, 3 payload bits
//	00000001  END      transport framing: end of message
//	00000000  BEGIN    transport framing: start of message
//
// A code is a start sub-code optionally followed by EXT continuation bytes
// carrying increasingly significant bits, least-significant first; the
// encoding is minimal in that a value never carries a trailing all-zero EXT
// byte. See package serializer and package unserializer for the read/write
// sides of this encoding, and package receiver for how a raw byte stream is
// partitioned into BEGIN/END-framed messages in the first place.
package dbf

import (
	"github.com/mewkiz/dbf/receiver"
	"github.com/mewkiz/dbf/serializer"
	"github.com/mewkiz/dbf/unserializer"
)

// Encoding reports the wire form of a message: ASCII text or binary DBF.
type Encoding = receiver.Encoding

// Re-exported Encoding values, so callers that only import package dbf
// don't also need package receiver.
const (
	Unknown = receiver.Unknown
	ASCII   = receiver.ASCII
	Binary  = receiver.Binary
)

const (
	beginByte = 0x00
	endByte   = 0x01
)

// Frame brackets a finalized serializer's bytes with the BEGIN/END
// transport markers, ready to be written to a byte stream that a peer
// Receiver is reading.
func Frame(s *serializer.Serializer) []byte {
	msg := s.Bytes()
	out := make([]byte, 0, len(msg)+2)
	out = append(out, beginByte)
	out = append(out, msg...)
	out = append(out, endByte)
	return out
}

// SendInt returns a single-value framed binary message encoding i, with a
// trailing CRC.
func SendInt(i int64) []byte {
	s := serializer.New()
	s.WriteInt64(i)
	s.WriteCRC()
	return Frame(s)
}

// SendWord returns a single-value framed binary message encoding word, with
// a trailing CRC.
func SendWord(word string) []byte {
	s := serializer.New()
	s.WriteWord(word)
	s.WriteCRC()
	return Frame(s)
}

// SendString returns a single-value framed binary message encoding str,
// with a trailing CRC.
func SendString(str string) []byte {
	s := serializer.New()
	s.WriteString(str)
	s.WriteCRC()
	return Frame(s)
}

// Receive drains a completed message from r and returns an Unserializer
// ready to read it, along with the CRC check result (NoCRC for an ASCII
// message, by construction). The receiver is left as-is; callers are
// responsible for calling Reset on r once they're done with the returned
// Unserializer's borrowed bytes.
func Receive(r *receiver.Receiver) (*unserializer.Unserializer, unserializer.CRCResult) {
	return unserializer.NewFromReceiver(r)
}
