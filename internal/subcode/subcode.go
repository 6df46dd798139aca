// Package subcode implements the pure, stateless bit-level primitives of the
// DBF sub-code layer: packing a (class, value) pair into a minimal run of
// bytes and unpacking a byte run back into a (class, value) pair.
//
// A sub-code is a single byte whose class is determined by the position of
// its most significant set bit (see the prefix table in the package-level
// doc of github.com/mewkiz/dbf). A code is a start sub-code (any class but
// Ext) optionally followed by Ext continuation bytes carrying increasingly
// significant bits, least-significant first.
package subcode

// Class identifies the 3-bit-prefix family a sub-code byte belongs to.
type Class uint8

// Sub-code classes, ordered by the length of their fixed prefix (shortest
// first), mirroring the bit layout in dbf.h.
const (
	// None is returned for an index that does not resolve to a byte (e.g.
	// an Ext byte with no preceding start sub-code).
	None Class = iota
	// Ext is a continuation sub-code: 1xxxxxxx, 7 payload bits.
	Ext
	// Pint starts a non-negative integer: 01xxxxxx, 6 payload bits.
	Pint
	// Nint starts a negative integer (value = -1-n): 001xxxxx, 5 payload bits.
	Nint
	// FmtCrc is a format-switch code, or, if last in a message, a CRC:
	// 0001xxxx, 4 payload bits.
	FmtCrc
	// Rep is a repetition-count code: 00001xxx, 3 payload bits.
	Rep
	// End marks the end of a framed message: 00000001, 0 payload bits.
	End
	// Begin marks the start of a framed message: 00000000, 0 payload bits.
	Begin
)

// Payload bit widths per class, indexed the same way the reference
// implementation's DBF_*_DATANBITS macros are.
const (
	ExtBits    = 7
	PintBits   = 6
	NintBits   = 5
	FmtCrcBits = 4
	RepBits    = 3
)

// Sub-code identifier bytes (the fixed prefix bits, payload bits zeroed).
const (
	extID    = 0x80
	pintID   = 0x40
	nintID   = 0x20
	fmtCrcID = 0x10
	repID    = 0x08
	endID    = 0x01
	beginID  = 0x00
)

const extMask = 0x7F

// BeginByte and EndByte are the transport-framing markers that bracket a
// message on an untrusted byte stream. They are not sub-codes in their own
// right beyond being the Begin/End classes above.
const (
	BeginByte = beginID
	EndByte   = endID
)

// FormatCode is the payload of a FmtCrc sub-code when that sub-code is not
// the last code in a message: it tells the decoder how to interpret the
// number codes that follow.
type FormatCode int64

// Recognized format codes; 3..15 are reserved and unimplemented.
const (
	FormatInt  FormatCode = 0
	FormatWord FormatCode = 1
	FormatStr  FormatCode = 2
)

// Mode selects the wire dialect a serializer or unserializer speaks: the
// compact binary sub-code encoding, or the human-readable ASCII mirror.
type Mode uint8

const (
	Binary Mode = iota
	ASCII
)

// CharOffset is the bias applied between a character byte and the integer
// code that represents it inside a word/string value: printable ASCII
// '@'..'~' maps to 0..62 (PINT, single byte), ' '..'?' maps to -1..-32
// (NINT, single byte).
const CharOffset = 64

// classTable is a 256-entry lookup from byte value to Class, built once at
// package init the same way codeTypeTable is built at compile time in dbf.c.
var classTable [256]Class

func init() {
	for i := 0; i < 256; i++ {
		classTable[i] = classify(byte(i))
	}
}

func classify(b byte) Class {
	switch {
	case b&extID == extID:
		return Ext
	case b&pintID == pintID:
		return Pint
	case b&nintID == nintID:
		return Nint
	case b&fmtCrcID == fmtCrcID:
		return FmtCrc
	case b&repID == repID:
		return Rep
	case b == endID:
		return End
	case b == beginID:
		return Begin
	default:
		return None
	}
}

// ClassOf returns the Class of a single sub-code byte via table lookup.
func ClassOf(b byte) Class {
	return classTable[b]
}

// idForClass returns the fixed identifier byte for a start-sub-code class.
// Ext is handled separately since it is never a start sub-code on its own.
func idForClass(c Class) byte {
	switch c {
	case Pint:
		return pintID
	case Nint:
		return nintID
	case FmtCrc:
		return fmtCrcID
	case Rep:
		return repID
	default:
		return 0
	}
}

// payloadBits returns the number of data bits a start sub-code of class c
// carries in its first byte.
func payloadBits(c Class) uint {
	switch c {
	case Pint:
		return PintBits
	case Nint:
		return NintBits
	case FmtCrc:
		return FmtCrcBits
	case Rep:
		return RepBits
	default:
		return 0
	}
}

// Append encodes value as a code of the given class and appends it to buf,
// returning the extended slice. The low payloadBits(class) bits of value are
// packed into the start sub-code; remaining bits are emitted as Ext
// sub-codes, least-significant first, until no set bits remain. A value of 0
// always produces exactly one byte — this is what makes the encoding
// minimal (property 2 of the format: no trailing all-zero Ext bytes).
func Append(buf []byte, class Class, value uint64) []byte {
	nofb := payloadBits(class)
	m := uint64(1<<nofb) - 1
	buf = append(buf, idForClass(class)|byte(value&m))
	value >>= nofb
	for value > 0 {
		buf = append(buf, extID|byte(value&extMask))
		value >>= ExtBits
	}
	return buf
}

// FindNext returns the index of the byte one past the end of the code that
// starts at idx: it steps over idx's own start sub-code and any Ext
// sub-codes that follow it. Callers must check the result against the
// buffer length before indexing.
func FindNext(msg []byte, idx int) int {
	for {
		idx++
		if idx >= len(msg) {
			return idx
		}
		if ClassOf(msg[idx]) != Ext {
			return idx
		}
	}
}

// FindBeginOfCode scans backward from idx and returns the index of the start
// sub-code belonging to the code ending at idx (i.e. the first non-Ext byte
// found going backward, or 0 if the buffer begins with Ext bytes).
func FindBeginOfCode(msg []byte, idx int) int {
	for idx > 0 {
		idx--
		if ClassOf(msg[idx]) != Ext {
			return idx
		}
	}
	return idx
}

// DecodeBackward decodes the code ending at endIdx (exclusive) by scanning
// backward from endIdx-1, collecting Ext payload bits from least to most
// significant until a non-Ext byte terminates the scan. It returns the
// accumulated unsigned value; the caller is responsible for interpreting the
// sign per the terminating sub-code's class (Nint means -1-value).
//
// An Ext byte at index 0 (no non-Ext predecessor) is invalid input: the
// accumulated value is returned as-is (typically 0), and the class the
// caller observes at index 0 will be Ext, which callers must treat as None.
func DecodeBackward(msg []byte, endIdx int) int64 {
	var v int64
	for endIdx > 0 {
		endIdx--
		ch := msg[endIdx]
		switch ClassOf(ch) {
		case Ext:
			v = (v << ExtBits) | int64(ch&extMask)
			continue
		case Pint:
			return (v << PintBits) | int64(ch&^pintID)
		case Nint:
			return (v << NintBits) | int64(ch&^nintID)
		case FmtCrc:
			return (v << FmtCrcBits) | int64(ch&^fmtCrcID)
		case Rep:
			return (v << RepBits) | int64(ch&^repID)
		case End, Begin, None:
			return v
		}
	}
	return v
}
