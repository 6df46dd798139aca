package subcode

import "testing"

func TestClassOf(t *testing.T) {
	tests := []struct {
		b byte
		c Class
	}{
		{0x00, Begin},
		{0x01, End},
		{0x08, Rep},
		{0x0F, Rep},
		{0x10, FmtCrc},
		{0x1F, FmtCrc},
		{0x20, Nint},
		{0x3F, Nint},
		{0x40, Pint},
		{0x7F, Pint},
		{0x80, Ext},
		{0xFF, Ext},
	}
	for _, test := range tests {
		if got := ClassOf(test.b); got != test.c {
			t.Errorf("ClassOf(0x%02X) = %v, want %v", test.b, got, test.c)
		}
	}
}

func TestAppendZero(t *testing.T) {
	buf := Append(nil, Pint, 0)
	if len(buf) != 1 || buf[0] != 0x40 {
		t.Fatalf("Append(Pint, 0) = % X, want [40]", buf)
	}
}

// 1000 needs one Ext byte.
func TestAppendMultiByte(t *testing.T) {
	buf := Append(nil, Pint, 1000)
	want := []byte{0x68, 0x8F}
	if len(buf) != len(want) || buf[0] != want[0] || buf[1] != want[1] {
		t.Fatalf("Append(Pint, 1000) = % X, want % X", buf, want)
	}
}

func TestMinimality(t *testing.T) {
	for _, v := range []uint64{0, 1, 63, 64, 4095, 1 << 20, 1 << 40, 1<<64 - 1} {
		buf := Append(nil, Pint, v)
		if len(buf) > 1 {
			last := buf[len(buf)-1]
			if last&extMask == 0 {
				t.Errorf("Append(Pint, %d) has trailing all-zero Ext byte: % X", v, buf)
			}
		}
	}
}

func TestFindNextSkipsExtensions(t *testing.T) {
	buf := Append(nil, Pint, 1000) // two bytes: start + one Ext
	buf = Append(buf, Pint, 0)     // one more byte
	if got := FindNext(buf, 0); got != 2 {
		t.Errorf("FindNext(buf, 0) = %d, want 2", got)
	}
	if got := FindNext(buf, 2); got != 3 {
		t.Errorf("FindNext(buf, 2) = %d, want 3", got)
	}
}

func TestDecodeBackwardRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 63, 64, 1000, 1 << 20, 1<<36 - 1}
	var buf []byte
	var ends []int
	for _, v := range values {
		buf = Append(buf, Pint, v)
		ends = append(ends, len(buf))
	}
	start := 0
	for i, end := range ends {
		got := DecodeBackward(buf, end)
		if uint64(got) != values[i] {
			t.Errorf("DecodeBackward(buf, %d) = %d, want %d", end, got, values[i])
		}
		start = end
	}
	_ = start
}

func TestDecodeBackwardAtBufferStart(t *testing.T) {
	// An Ext byte with no predecessor is invalid; value defaults to 0.
	buf := []byte{0x80}
	if got := DecodeBackward(buf, 1); got != 0 {
		t.Errorf("DecodeBackward on lone Ext byte = %d, want 0", got)
	}
}
