package serializer

import (
	"testing"

	"github.com/mewkiz/dbf/internal/subcode"
)

func TestWriteInt64Zero(t *testing.T) {
	s := New()
	s.WriteInt64(0)
	s.Finalize()
	want := []byte{0x40}
	if !bytesEqual(s.Bytes(), want) {
		t.Fatalf("Bytes() = % X, want % X", s.Bytes(), want)
	}
}

func TestWriteInt64NegativeOne(t *testing.T) {
	s := New()
	s.WriteInt64(-1)
	s.Finalize()
	want := []byte{0x20}
	if !bytesEqual(s.Bytes(), want) {
		t.Fatalf("Bytes() = % X, want % X", s.Bytes(), want)
	}
}

func TestWriteInt64MultiByte(t *testing.T) {
	s := New()
	s.WriteInt64(1000)
	s.Finalize()
	want := []byte{0x68, 0x8F}
	if !bytesEqual(s.Bytes(), want) {
		t.Fatalf("Bytes() = % X, want % X", s.Bytes(), want)
	}
}

// Three writes of the same value fold into one code plus one REP.
func TestWriteInt64Repetition(t *testing.T) {
	s := New()
	s.WriteInt64(7)
	s.WriteInt64(7)
	s.WriteInt64(7)
	s.Finalize()
	want := []byte{0x47, 0x0A}
	if !bytesEqual(s.Bytes(), want) {
		t.Fatalf("Bytes() = % X, want % X", s.Bytes(), want)
	}
}

func TestWriteWord(t *testing.T) {
	s := New()
	s.WriteWord("Hi")
	s.Finalize()
	want := []byte{0x11, 0x48, 0x69}
	if !bytesEqual(s.Bytes(), want) {
		t.Fatalf("Bytes() = % X, want % X", s.Bytes(), want)
	}
}

func TestWriteInt64ZeroThenDistinctValueEmitsNoPhantomRepeat(t *testing.T) {
	s := New()
	s.WriteInt64(0)
	s.WriteInt64(5)
	s.Finalize()
	want := []byte{0x40, 0x45}
	if !bytesEqual(s.Bytes(), want) {
		t.Fatalf("Bytes() = % X, want % X", s.Bytes(), want)
	}
}

func TestWriteInt64ZeroAfterResetDoesNotFoldAgainstPriorValue(t *testing.T) {
	s := New()
	s.WriteInt64(9)
	s.Finalize()
	s.Reset()
	s.WriteInt64(0)
	s.Finalize()
	want := []byte{0x40}
	if !bytesEqual(s.Bytes(), want) {
		t.Fatalf("Bytes() = % X, want % X", s.Bytes(), want)
	}
}

func TestWriteCRCAppendsFmtCrcCode(t *testing.T) {
	s := New()
	s.WriteInt64(42)
	s.WriteCRC()
	buf := s.Bytes()
	if len(buf) < 2 {
		t.Fatalf("Bytes() too short: % X", buf)
	}
	// Last code must decode as a FmtCrc class code.
	begin := subcode.FindBeginOfCode(buf, len(buf))
	if got := subcode.ClassOf(buf[begin]); got != subcode.FmtCrc {
		t.Fatalf("last code class = %v, want FmtCrc: % X", got, buf)
	}
}

func TestWriteStringEscapesQuote(t *testing.T) {
	s := NewASCII()
	s.WriteString("a\"b")
	want := `"a\x22b"`
	if string(s.Bytes()) != want {
		t.Fatalf("Bytes() = %q, want %q", s.Bytes(), want)
	}
}

func TestASCIISeparatorBetweenValues(t *testing.T) {
	s := NewASCII()
	s.WriteInt64(1)
	s.WriteInt64(2)
	if string(s.Bytes()) != "1 2" {
		t.Fatalf("Bytes() = %q, want %q", s.Bytes(), "1 2")
	}
}

func TestWriteWordTruncatesAtDisallowedByte(t *testing.T) {
	s := NewASCII()
	s.WriteWord("hi there")
	if string(s.Bytes()) != "hi" {
		t.Fatalf("Bytes() = %q, want %q", s.Bytes(), "hi")
	}
}

func TestFixedBufferOverflowEntersErrorState(t *testing.T) {
	s := NewFixed(1)
	s.WriteInt64(1000) // needs 2 bytes, only 1 available
	if !s.Err() {
		t.Fatal("expected Err() to be true after overflow")
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
