// Package tlv implements the BER/DER tag-length-value codec described in
// spec section 4.1-4.2: a scoped-nesting Writer and a non-copying streaming
// Reader. It is grounded on the teacher's bertlv package (the length-byte
// decode loop and long-tag handling in bertlv.go) but restructured from a
// one-shot map-based Parse into a cursor/scope model, since the teacher has
// no writer at all and its reader does not support incremental, fallible
// try-style access.
package tlv

import "github.com/go-pivert/pivert/internal/perr"

// frame accumulates the already-encoded children of one nesting level. The
// root frame (index 0 in Writer.frames) has no tag of its own.
type frame struct {
	tag  uint32
	buf  []byte
	root bool
}

// Writer assembles a nested TLV tree and serializes it to bytes. Open a
// nested scope with OpenNested, write leaves into it, and Close the scope
// on every exit path (the returned *NestedScope's Close is idempotent and
// safe to call from a defer).
type Writer struct {
	frames []*frame
}

// NewWriter returns an empty Writer ready to accept writes at its root
// scope.
func NewWriter() *Writer {
	return &Writer{frames: []*frame{{root: true}}}
}

func (w *Writer) top() *frame {
	return w.frames[len(w.frames)-1]
}

// NestedScope is a handle to one open nesting level. Exactly one Close
// call (the first) takes effect; subsequent calls are no-ops.
type NestedScope struct {
	w      *Writer
	frame  *frame
	closed bool
}

// OpenNested opens a new nested scope under the currently open scope and
// returns a handle to it. The caller must Close the handle (directly or via
// defer) before any ancestor scope can be closed or the tree encoded.
func (w *Writer) OpenNested(tag uint32) (*NestedScope, error) {
	if err := validateTag("tlv.OpenNested", tag); err != nil {
		return nil, err
	}
	f := &frame{tag: tag}
	w.frames = append(w.frames, f)
	return &NestedScope{w: w, frame: f}, nil
}

// Close folds this scope's accumulated children into its parent as one
// encoded TLV. Safe to call more than once.
func (s *NestedScope) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.w.closeFrame(s.frame)
}

func (w *Writer) closeFrame(f *frame) error {
	if len(w.frames) < 2 || w.frames[len(w.frames)-1] != f {
		return perr.New(perr.InvalidSchema, "tlv.Close", "scopes must close innermost-first")
	}
	w.frames = w.frames[:len(w.frames)-1]
	lengthBytes, err := encodeLength("tlv.Close", len(f.buf))
	if err != nil {
		return err
	}
	width, err := tagWidth("tlv.Close", f.tag)
	if err != nil {
		return err
	}
	parent := w.top()
	parent.buf = append(parent.buf, encodeTag(f.tag, width)...)
	parent.buf = append(parent.buf, lengthBytes...)
	parent.buf = append(parent.buf, f.buf...)
	return nil
}

// WriteValue appends a leaf TLV under the currently open scope.
func (w *Writer) WriteValue(tag uint32, value []byte) error {
	width, err := tagWidth("tlv.WriteValue", tag)
	if err != nil {
		return err
	}
	lengthBytes, err := encodeLength("tlv.WriteValue", len(value))
	if err != nil {
		return err
	}
	top := w.top()
	top.buf = append(top.buf, encodeTag(tag, width)...)
	top.buf = append(top.buf, lengthBytes...)
	top.buf = append(top.buf, value...)
	return nil
}

// WriteByte appends a 1-byte leaf TLV.
func (w *Writer) WriteByte(tag uint32, v byte) error {
	return w.WriteValue(tag, []byte{v})
}

// WriteInt16 appends a 2-byte leaf TLV. bigEndian selects byte order;
// callers pass true for the PIV-standard big-endian form.
func (w *Writer) WriteInt16(tag uint32, n uint16, bigEndian bool) error {
	var b [2]byte
	if bigEndian {
		b[0], b[1] = byte(n>>8), byte(n)
	} else {
		b[0], b[1] = byte(n), byte(n>>8)
	}
	return w.WriteValue(tag, b[:])
}

// WriteInt32 appends a 4-byte leaf TLV.
func (w *Writer) WriteInt32(tag uint32, n uint32, bigEndian bool) error {
	var b [4]byte
	if bigEndian {
		b[0], b[1], b[2], b[3] = byte(n>>24), byte(n>>16), byte(n>>8), byte(n)
	} else {
		b[0], b[1], b[2], b[3] = byte(n), byte(n>>8), byte(n>>16), byte(n>>24)
	}
	return w.WriteValue(tag, b[:])
}

// Encoding selects how WriteString/Reader.ReadString interpret text bytes.
type Encoding int

const (
	ASCII Encoding = iota
	UTF8
)

// WriteString appends a leaf TLV holding text encoded per encoding. ASCII
// values are validated to be 7-bit clean; UTF8 values are written as-is.
func (w *Writer) WriteString(tag uint32, text string, encoding Encoding) error {
	if encoding == ASCII {
		for i := 0; i < len(text); i++ {
			if text[i] > 0x7F {
				return perr.New(perr.UnexpectedEncoding, "tlv.WriteString", "non-ASCII byte in ASCII string")
			}
		}
	}
	return w.WriteValue(tag, []byte(text))
}

// WriteEncoded appends a pre-encoded TLV verbatim to the current scope,
// bypassing tag/length re-encoding.
func (w *Writer) WriteEncoded(raw []byte) error {
	top := w.top()
	top.buf = append(top.buf, raw...)
	return nil
}

// EncodedLength returns the total serialized length of the tree. Valid
// only when every opened scope has been closed.
func (w *Writer) EncodedLength() (int, error) {
	if len(w.frames) != 1 {
		return 0, perr.New(perr.InvalidSchema, "tlv.EncodedLength", "nested scopes still open")
	}
	return len(w.frames[0].buf), nil
}

// Encode returns a newly allocated buffer holding the whole tree. Valid
// only when every opened scope has been closed.
func (w *Writer) Encode() ([]byte, error) {
	if len(w.frames) != 1 {
		return nil, perr.New(perr.InvalidSchema, "tlv.Encode", "nested scopes still open")
	}
	out := make([]byte, len(w.frames[0].buf))
	copy(out, w.frames[0].buf)
	return out, nil
}

// TryEncode writes the tree into dest and returns the number of bytes
// written. It returns false (written left at 0) if the tree has unclosed
// scopes or dest is too small.
func (w *Writer) TryEncode(dest []byte) (written int, ok bool) {
	if len(w.frames) != 1 {
		return 0, false
	}
	root := w.frames[0].buf
	if len(dest) < len(root) {
		return 0, false
	}
	return copy(dest, root), true
}

// Clear zeros every byte currently buffered by the writer (root scope plus
// any still-open nested scopes), for disposing of sensitive value data.
func (w *Writer) Clear() {
	for _, f := range w.frames {
		for i := range f.buf {
			f.buf[i] = 0
		}
		f.buf = f.buf[:0]
	}
}
