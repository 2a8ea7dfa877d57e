package storage

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"rpnengine/calcerr"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteU8(0x7F)
	w.WriteBool(true)
	w.WriteBool(false)
	w.WriteU16(0xBEEF)
	w.WriteU32(0xDEADBEEF)
	w.WriteI32(-12345)
	w.WriteU64(0x0123456789ABCDEF)
	w.WriteBytes([]byte("payload"))
	w.WriteOffset(Offset(0x1234))

	r := NewReader(w.Bytes())
	if got, _ := r.ReadU8(); got != 0x7F {
		t.Errorf("ReadU8 = %#x, want 0x7f", got)
	}
	if got, _ := r.ReadBool(); !got {
		t.Error("first ReadBool = false, want true")
	}
	if got, _ := r.ReadBool(); got {
		t.Error("second ReadBool = true, want false")
	}
	if got, _ := r.ReadU16(); got != 0xBEEF {
		t.Errorf("ReadU16 = %#x, want 0xbeef", got)
	}
	if got, _ := r.ReadU32(); got != 0xDEADBEEF {
		t.Errorf("ReadU32 = %#x, want 0xdeadbeef", got)
	}
	if got, _ := r.ReadI32(); got != -12345 {
		t.Errorf("ReadI32 = %d, want -12345", got)
	}
	if got, _ := r.ReadU64(); got != 0x0123456789ABCDEF {
		t.Errorf("ReadU64 = %#x", got)
	}
	b, err := r.ReadBytes()
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if diff := cmp.Diff("payload", string(b)); diff != "" {
		t.Errorf("ReadBytes mismatch (-want +got):\n%s", diff)
	}
	if got, _ := r.ReadOffset(); got != Offset(0x1234) {
		t.Errorf("ReadOffset = %#x, want 0x1234", got)
	}
	if r.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", r.Remaining())
	}
}

func TestSizerMatchesWriter(t *testing.T) {
	write := func(w *Writer) {
		w.WriteU8(1)
		w.WriteU32(2)
		w.WriteBytes(make([]byte, 17))
		w.WriteOffset(3)
	}
	sizer := NewSizer()
	write(sizer)
	w := NewWriter()
	write(w)
	if sizer.Size() != len(w.Bytes()) {
		t.Errorf("sizer Size = %d, writer wrote %d bytes", sizer.Size(), len(w.Bytes()))
	}
}

func TestReaderShortBufferIsCorruptData(t *testing.T) {
	r := NewReader([]byte{1, 2})
	if _, err := r.ReadU32(); !calcerr.Is(err, calcerr.CorruptData) {
		t.Errorf("ReadU32 on short buffer: err = %v, want CorruptData", err)
	}
}
