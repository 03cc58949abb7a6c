package apdu

import (
	"bytes"
	"testing"

	"github.com/go-pivert/pivert/internal/perr"
)

func TestParseCase1(t *testing.T) {
	cmd, err := ParseCommand([]byte{0x00, 0xA4, 0x04, 0x00})
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if len(cmd.Data) != 0 || cmd.Ne != 0 {
		t.Fatalf("got Data=% X Ne=%d, want empty/0", cmd.Data, cmd.Ne)
	}
}

func TestParseCase2Short(t *testing.T) {
	cmd, err := ParseCommand([]byte{0x00, 0xC0, 0x00, 0x00, 0x00})
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if cmd.Ne != 256 {
		t.Fatalf("got Ne=%d, want 256 (Le byte 0x00)", cmd.Ne)
	}
}

func TestParseCase3Short(t *testing.T) {
	raw := append([]byte{0x00, 0xCB, 0x3F, 0xFF, 0x03}, 0x5C, 0x01, 0x7E)
	cmd, err := ParseCommand(raw)
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if !bytes.Equal(cmd.Data, []byte{0x5C, 0x01, 0x7E}) || cmd.Ne != 0 {
		t.Fatalf("got Data=% X Ne=%d", cmd.Data, cmd.Ne)
	}
}

func TestParseCase4Short(t *testing.T) {
	raw := []byte{0x00, 0x20, 0x00, 0x80, 0x02, 0x31, 0x32, 0x00}
	cmd, err := ParseCommand(raw)
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if !bytes.Equal(cmd.Data, []byte{0x31, 0x32}) || cmd.Ne != 256 {
		t.Fatalf("got Data=% X Ne=%d", cmd.Data, cmd.Ne)
	}
}

func TestParseExtendedLeOnly(t *testing.T) {
	raw := []byte{0x00, 0xCB, 0x00, 0x00, 0x00, 0x01, 0x00}
	cmd, err := ParseCommand(raw)
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if cmd.Ne != 256 {
		t.Fatalf("got Ne=%d, want 256", cmd.Ne)
	}
}

func TestParseExtendedDataNoLe(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, 300)
	raw := append([]byte{0x10, 0x87, 0x00, 0x00, 0x00, 0x01, 0x2C}, data...)
	cmd, err := ParseCommand(raw)
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if !bytes.Equal(cmd.Data, data) {
		t.Fatalf("data mismatch: got %d bytes, want %d", len(cmd.Data), len(data))
	}
	if cmd.Ne != 0 {
		t.Fatalf("got Ne=%d, want 0", cmd.Ne)
	}
}

func TestParseExtendedDataWithLe(t *testing.T) {
	data := bytes.Repeat([]byte{0xCD}, 260)
	raw := append([]byte{0x00, 0x87, 0x00, 0x00, 0x00, 0x01, 0x04}, data...)
	raw = append(raw, 0x00, 0x00) // Le = 0 -> 65536
	cmd, err := ParseCommand(raw)
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if !bytes.Equal(cmd.Data, data) {
		t.Fatalf("data mismatch")
	}
	if cmd.Ne != 65536 {
		t.Fatalf("got Ne=%d, want 65536", cmd.Ne)
	}
}

func TestParseTooShort(t *testing.T) {
	if _, err := ParseCommand([]byte{0x00, 0xA4, 0x04}); !perr.Is(err, perr.UnexpectedEnd) {
		t.Fatalf("got %v, want UnexpectedEnd", err)
	}
}

// TestRoundTrip covers spec.md section 8's APDU round-trip property: for a
// representative sample of CLA/INS/P1/P2 and the enumerated Nc/Ne sets,
// serializing then parsing recovers every field exactly.
func TestRoundTrip(t *testing.T) {
	headers := [][4]byte{
		{0x00, 0x00, 0x00, 0x00},
		{0x10, 0xA4, 0x04, 0x80},
		{0xFF, 0xFF, 0xFF, 0xFF},
	}
	ncValues := []int{0, 1, 255, 256, 65535, 65536}
	neValues := []int{0, 1, 256, 65536, NeMax}

	for _, h := range headers {
		for _, nc := range ncValues {
			for _, ne := range neValues {
				data := make([]byte, nc)
				for i := range data {
					data[i] = byte(i)
				}
				cmd := &Command{CLA: h[0], INS: h[1], P1: h[2], P2: h[3], Data: data, Ne: ne}
				raw, err := cmd.Serialize(Automatic)
				if err != nil {
					t.Fatalf("nc=%d ne=%d: Serialize: %v", nc, ne, err)
				}
				got, err := ParseCommand(raw)
				if err != nil {
					t.Fatalf("nc=%d ne=%d: ParseCommand: %v", nc, ne, err)
				}
				if got.CLA != cmd.CLA || got.INS != cmd.INS || got.P1 != cmd.P1 || got.P2 != cmd.P2 {
					t.Fatalf("header mismatch: got %+v, want %+v", got, cmd)
				}
				if !bytes.Equal(got.Data, cmd.Data) {
					t.Fatalf("nc=%d: data mismatch: got %d bytes, want %d", nc, len(got.Data), len(cmd.Data))
				}
				wantNe := ne
				if ne == NeMax {
					// Automatic resolves NeMax to the chosen form's max on
					// the wire; recover what the wire form actually means.
					if nc <= 255 {
						wantNe = 256
					} else {
						wantNe = 65536
					}
				}
				if got.Ne != wantNe {
					t.Fatalf("nc=%d ne=%d: got Ne=%d, want %d", nc, ne, got.Ne, wantNe)
				}
			}
		}
	}
}

func TestSerializeNoValidEncoding(t *testing.T) {
	cmd := &Command{Data: make([]byte, 70000)}
	if _, err := cmd.Serialize(Automatic); !perr.Is(err, perr.NoValidEncoding) {
		t.Fatalf("got %v, want NoValidEncoding", err)
	}
}

func TestResponseSerialize(t *testing.T) {
	r := NewResponse([]byte{0x01, 0x02}, SWSuccess)
	got := r.Serialize()
	want := []byte{0x01, 0x02, 0x90, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % X, want % X", got, want)
	}
}

func TestSWMoreDataCap(t *testing.T) {
	if got := SWMoreData(300); got != 0x61FF {
		t.Fatalf("got %04X, want 61FF", got)
	}
}

func TestEncodingForm(t *testing.T) {
	cases := []struct {
		name string
		nc   int
		ne   int
		want Form
	}{
		{"empty", 0, 0, Short},
		{"short boundary Nc", 255, 0, Short},
		{"extended Nc", 256, 0, Extended},
		{"short boundary Ne", 0, 256, Short},
		{"extended Ne", 0, 257, Extended},
		{"NeMax stays short with short Nc", 10, NeMax, Short},
		{"extended Nc wins over short Ne", 300, 1, Extended},
	}
	for _, tc := range cases {
		cmd := &Command{Data: make([]byte, tc.nc), Ne: tc.ne}
		if got := cmd.EncodingForm(); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}
