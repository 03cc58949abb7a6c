package tlv

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/go-pivert/pivert/internal/perr"
)

func TestReaderReadValue(t *testing.T) {
	r := NewReader([]byte{0x5C, 0x03, 0x01, 0x02, 0x03, 0x90, 0x00})
	v, err := r.ReadValue(0x5C)
	if err != nil {
		t.Fatalf("ReadValue: %v", err)
	}
	if !bytes.Equal(v, []byte{0x01, 0x02, 0x03}) {
		t.Fatalf("got % X", v)
	}
	if !r.HasData() {
		t.Fatalf("expected remaining data")
	}
	if r.Len() != 2 {
		t.Fatalf("got Len()=%d, want 2", r.Len())
	}
}

func TestReaderEmptyValue(t *testing.T) {
	r := NewReader([]byte{0x53, 0x00})
	v, err := r.ReadValue(0x53)
	if err != nil {
		t.Fatalf("ReadValue: %v", err)
	}
	if len(v) != 0 {
		t.Fatalf("got %d bytes, want 0", len(v))
	}
	if r.HasData() {
		t.Fatalf("expected no remaining data")
	}
}

func TestReaderTagMismatchLeavesPositionUnchanged(t *testing.T) {
	r := NewReader([]byte{0x5C, 0x01, 0xAA})
	if _, ok := r.TryReadValue(0x5D); ok {
		t.Fatalf("expected mismatch to fail")
	}
	// Position must be unchanged: the original tag is still readable.
	v, err := r.ReadValue(0x5C)
	if err != nil {
		t.Fatalf("ReadValue after failed try: %v", err)
	}
	if !bytes.Equal(v, []byte{0xAA}) {
		t.Fatalf("got % X", v)
	}
}

func TestReaderTwoByteTag(t *testing.T) {
	r := NewReader([]byte{0x5F, 0x2F, 0x02, 0x40, 0x00})
	v, err := r.ReadValue(0x5F2F)
	if err != nil {
		t.Fatalf("ReadValue: %v", err)
	}
	if !bytes.Equal(v, []byte{0x40, 0x00}) {
		t.Fatalf("got % X", v)
	}
}

func TestReaderUnsupportedLengthRejection(t *testing.T) {
	cases := []byte{0x80, 0x84, 0x85, 0xFF}
	for _, lenByte := range cases {
		r := NewReader([]byte{0x5C, lenByte, 0x00, 0x00, 0x00})
		before := r.pos
		if _, err := r.ReadValue(0x5C); !perr.Is(err, perr.UnsupportedLength) {
			t.Fatalf("length byte 0x%02X: got %v, want UnsupportedLength", lenByte, err)
		}
		if r.pos != before {
			t.Fatalf("length byte 0x%02X: cursor advanced on failure", lenByte)
		}
	}
}

func TestReaderFixedWidthMismatch(t *testing.T) {
	r := NewReader([]byte{0x80, 0x01, 0x03})
	if _, err := r.ReadInt16(0x80, true); !perr.Is(err, perr.UnexpectedEncoding) {
		t.Fatalf("got %v, want UnexpectedEncoding", err)
	}
}

func TestReaderReadNested(t *testing.T) {
	r := NewReader([]byte{0x61, 0x04, 0x4F, 0x02, 0xAA, 0xBB})
	nested, err := r.ReadNested(0x61)
	if err != nil {
		t.Fatalf("ReadNested: %v", err)
	}
	v, err := nested.ReadValue(0x4F)
	if err != nil {
		t.Fatalf("nested ReadValue: %v", err)
	}
	if !bytes.Equal(v, []byte{0xAA, 0xBB}) {
		t.Fatalf("got % X", v)
	}
	if r.HasData() {
		t.Fatalf("outer reader should be fully consumed")
	}
}

func TestReaderReadEncoded(t *testing.T) {
	r := NewReader([]byte{0x5C, 0x01, 0x7E, 0x99})
	full, err := r.ReadEncoded(0x5C)
	if err != nil {
		t.Fatalf("ReadEncoded: %v", err)
	}
	if !bytes.Equal(full, []byte{0x5C, 0x01, 0x7E}) {
		t.Fatalf("got % X", full)
	}
}

func TestReaderUnsupportedTagArgument(t *testing.T) {
	r := NewReader([]byte{0x01, 0x00})
	if _, err := r.ReadValue(0x10000); !perr.Is(err, perr.UnsupportedTag) {
		t.Fatalf("got %v, want UnsupportedTag", err)
	}
	if _, err := r.PeekTag(3); !perr.Is(err, perr.UnsupportedTag) {
		t.Fatalf("got %v, want UnsupportedTag", err)
	}
}

func TestReaderUnexpectedEnd(t *testing.T) {
	r := NewReader([]byte{0x5C, 0x05, 0x01})
	if _, err := r.ReadValue(0x5C); !perr.Is(err, perr.UnexpectedEnd) {
		t.Fatalf("got %v, want UnexpectedEnd", err)
	}
}

// TestRoundTrip is the property test from spec section 8: for randomly
// generated trees of TLVs up to depth 4, decode(encode(tree)) reproduces
// every leaf tag/value exactly.
func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for iter := 0; iter < 200; iter++ {
		tree := randomTree(rng, 4)
		w := NewWriter()
		if err := writeTree(w, tree); err != nil {
			t.Fatalf("writeTree: %v", err)
		}
		encoded, err := w.Encode()
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		r := NewReader(encoded)
		if err := checkTree(t, r, tree); err != nil {
			t.Fatalf("round-trip mismatch: %v", err)
		}
	}
}

type node struct {
	tag      uint32
	value    []byte // nil for nested nodes
	children []node
}

func randomTree(rng *rand.Rand, depth int) []node {
	n := 1 + rng.Intn(3)
	nodes := make([]node, n)
	for i := range nodes {
		tag := uint32(1 + rng.Intn(0xFFFE))
		if depth > 0 && rng.Intn(2) == 0 {
			nodes[i] = node{tag: tag, children: randomTree(rng, depth-1)}
		} else {
			value := make([]byte, rng.Intn(16))
			rng.Read(value)
			nodes[i] = node{tag: tag, value: value}
		}
	}
	return nodes
}

func writeTree(w *Writer, nodes []node) error {
	for _, n := range nodes {
		if n.children != nil {
			scope, err := w.OpenNested(n.tag)
			if err != nil {
				return err
			}
			if err := writeTree(w, n.children); err != nil {
				return err
			}
			if err := scope.Close(); err != nil {
				return err
			}
		} else {
			if err := w.WriteValue(n.tag, n.value); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkTree(t *testing.T, r *Reader, nodes []node) error {
	t.Helper()
	for _, n := range nodes {
		if n.children != nil {
			nested, err := r.ReadNested(n.tag)
			if err != nil {
				return err
			}
			if err := checkTree(t, nested, n.children); err != nil {
				return err
			}
		} else {
			v, err := r.ReadValue(n.tag)
			if err != nil {
				return err
			}
			if !bytes.Equal(v, n.value) {
				t.Fatalf("tag 0x%X: got % X, want % X", n.tag, v, n.value)
			}
		}
	}
	return nil
}
