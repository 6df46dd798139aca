package receiver

import "testing"

type fakeClock struct {
	ms int64
}

func (c *fakeClock) NowMS() int64 { return c.ms }

func (c *fakeClock) advance(d int64) { c.ms += d }

// A BEGIN/END-framed stream with no gap between messages, 00 47 01 00 48
// 01, yields two separate length-1 messages.
func TestProcessByteFramesTwoMessages(t *testing.T) {
	clk := &fakeClock{}
	r := New(clk)

	input := []byte{0x00, 0x47, 0x01, 0x00, 0x48, 0x01}
	var lengths []int
	for _, b := range input {
		n := r.ProcessByte(b)
		if n > 0 {
			lengths = append(lengths, n)
			if !r.IsDBF() {
				t.Fatalf("expected IsDBF after a positive return")
			}
			got := append([]byte(nil), r.Bytes()...)
			want := []byte{0x47}
			if len(lengths) == 2 {
				want = []byte{0x48}
			}
			if string(got) != string(want) {
				t.Fatalf("Bytes() = % X, want % X", got, want)
			}
			r.Reset()
		}
	}
	if len(lengths) != 2 || lengths[0] != 1 || lengths[1] != 1 {
		t.Fatalf("lengths = %v, want [1 1]", lengths)
	}
}

func TestProcessByteTextLine(t *testing.T) {
	clk := &fakeClock{}
	r := New(clk)
	for _, b := range []byte("hi\n") {
		r.ProcessByte(b)
	}
	if !r.IsText() {
		t.Fatal("expected IsText after a CR/LF-terminated line")
	}
	if string(r.Bytes()) != "hi" {
		t.Fatalf("Bytes() = %q, want %q", r.Bytes(), "hi")
	}
	if r.Encoding() != ASCII {
		t.Fatalf("Encoding() = %v, want ASCII", r.Encoding())
	}
}

func TestNoiseByteEntersIgnoreInputAndRecoversAfterQuiescence(t *testing.T) {
	clk := &fakeClock{}
	r := New(clk)

	r.ProcessByte(0xFF) // outside 0x20..0x7E, not a framing byte: noise
	if r.state != ignoreInput {
		t.Fatalf("state = %v, want ignoreInput", r.state)
	}

	clk.advance(50)
	r.ProcessByte(0xFE) // still within the quiescence window: stays ignored
	if r.state != ignoreInput {
		t.Fatalf("state = %v, want ignoreInput (still within window)", r.state)
	}

	clk.advance(150) // more than noiseQuiescenceMS since the last noise byte
	r.ProcessByte(0x00)
	if r.state != receivingMessage {
		t.Fatalf("state = %v, want receivingMessage after quiescence", r.state)
	}
}

func TestCheckTimeoutDiscardsPartialMessage(t *testing.T) {
	clk := &fakeClock{}
	r := New(clk)

	r.ProcessByte(0x00)
	r.ProcessByte(0x47)
	if r.state != receivingMessage {
		t.Fatalf("state = %v, want receivingMessage", r.state)
	}

	clk.advance(DefaultTimeoutMS + 1)
	r.Tick()
	if r.state != initial {
		t.Fatalf("state = %v, want initial after timeout", r.state)
	}
	if r.size != 0 {
		t.Fatalf("size = %d, want 0 after timeout discard", r.size)
	}
}

func TestByteInTerminalStateWithoutResetIsAnError(t *testing.T) {
	clk := &fakeClock{}
	r := New(clk)
	r.ProcessByte(0x00)
	r.ProcessByte(0x47)
	r.ProcessByte(0x01) // completes the message, enters dbfReceived

	if n := r.ProcessByte(0x00); n != -1 {
		t.Fatalf("ProcessByte() on unreset terminal state = %d, want -1", n)
	}
}

func TestEmptyEndInInitialStaysInitial(t *testing.T) {
	clk := &fakeClock{}
	r := New(clk)
	if n := r.ProcessByte(0x01); n != 0 {
		t.Fatalf("ProcessByte(END) in initial = %d, want 0", n)
	}
	if r.state != initial {
		t.Fatalf("state = %v, want initial", r.state)
	}
}
