package card

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/go-pivert/pivert/objects"
	"github.com/go-pivert/pivert/pivlog"
)

// spyLogger counts Debug/Error calls so tests can assert the card handler
// actually emits the messages SPEC_FULL.md's logging section promises,
// without depending on log/slog's output format.
type spyLogger struct {
	pivlog.NopLogger
	debugCalls int
	errorCalls int
}

func (s *spyLogger) DebugMsgf(string, ...interface{}) { s.debugCalls++ }
func (s *spyLogger) ErrorMsgf(error, string, ...interface{}) { s.errorCalls++ }

func testCard(t *testing.T) (*Card, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "pivert test"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
	}
	certDER, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}
	c, err := NewCard(certDER, key, Config{})
	if err != nil {
		t.Fatalf("NewCard: %v", err)
	}
	return c, key
}

func TestATRIsFixed(t *testing.T) {
	c, _ := testCard(t)
	want := []byte{
		0x3B, 0x9F, 0x95, 0x81, 0x31, 0xFE, 0x9F, 0x00, 0x66, 0x46,
		0x53, 0x05, 0x10, 0x00, 0x11, 0x71, 0xDF, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x02,
	}
	if got := c.ATR(); !bytes.Equal(got, want) {
		t.Fatalf("got % X, want % X", got, want)
	}
	if len(want) != 23 {
		t.Fatalf("test fixture ATR is %d bytes, want 23", len(want))
	}
}

func TestSelectPIV(t *testing.T) {
	c, _ := testCard(t)
	raw := append([]byte{0x00, 0xA4, 0x04, 0x00, 0x09}, objects.PIVAID[:]...)
	raw = append(raw, 0x00)
	resp := c.ProcessAPDU(raw)

	if resp[0] != 0x61 {
		t.Fatalf("got leading byte %02X, want 0x61", resp[0])
	}
	if sw := resp[len(resp)-2:]; !bytes.Equal(sw, []byte{0x90, 0x00}) {
		t.Fatalf("got trailing SW % X, want 90 00", sw)
	}
	if !bytes.Contains(resp, []byte(applicationLabel)) {
		t.Fatalf("response missing application label: % X", resp)
	}
}

func TestSelectUnknownAID(t *testing.T) {
	c, _ := testCard(t)
	raw := []byte{0x00, 0xA4, 0x04, 0x00, 0x07, 0xA0, 0x00, 0x00, 0x02, 0x47, 0x10, 0x01, 0x00}
	resp := c.ProcessAPDU(raw)
	if !bytes.Equal(resp, []byte{0x6A, 0x82}) {
		t.Fatalf("got % X, want 6A 82", resp)
	}
}

func TestVerifyPINAlwaysSucceeds(t *testing.T) {
	c, _ := testCard(t)
	raw := []byte{0x00, 0x20, 0x00, 0x80, 0x08, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36, 0xFF, 0xFF}
	resp := c.ProcessAPDU(raw)
	if !bytes.Equal(resp, []byte{0x90, 0x00}) {
		t.Fatalf("got % X, want 90 00", resp)
	}
}

func TestGetDataDiscovery(t *testing.T) {
	c, _ := testCard(t)
	raw := []byte{0x00, 0xCB, 0x3F, 0xFF, 0x03, 0x5C, 0x01, 0x7E, 0x00}
	resp := c.ProcessAPDU(raw)
	want := []byte{
		0x7E, 0x12,
		0x4F, 0x0B, 0xA0, 0x00, 0x00, 0x03, 0x08, 0x00, 0x00, 0x10, 0x00, 0x01, 0x00,
		0x5F, 0x2F, 0x02, 0x40, 0x00,
		0x90, 0x00,
	}
	if !bytes.Equal(resp, want) {
		t.Fatalf("got % X, want % X", resp, want)
	}
}

func TestGetDataUnknownTag(t *testing.T) {
	c, _ := testCard(t)
	raw := []byte{0x00, 0xCB, 0x3F, 0xFF, 0x05, 0x5C, 0x03, 0x5F, 0xFF, 0xFE, 0x00}
	resp := c.ProcessAPDU(raw)
	if !bytes.Equal(resp, []byte{0x6A, 0x82}) {
		t.Fatalf("got % X, want 6A 82", resp)
	}
}

func TestGetDataCHUIDRoundTrip(t *testing.T) {
	c, _ := testCard(t)
	raw := []byte{0x00, 0xCB, 0x3F, 0xFF, 0x05, 0x5C, 0x03, 0x5F, 0xC1, 0x02, 0x00}
	resp := c.ProcessAPDU(raw)
	if sw := resp[len(resp)-2:]; !bytes.Equal(sw, []byte{0x90, 0x00}) {
		t.Fatalf("got SW % X, want 90 00", sw)
	}
	got := objects.NewCHUID()
	if !got.TryDecode(resp[:len(resp)-2]) {
		t.Fatalf("GET DATA CHUID body failed to decode: % X", resp)
	}
}

func TestResetClearsChainingState(t *testing.T) {
	c, _ := testCard(t)
	c.session.appendRequest([]byte{0x01, 0x02})
	c.session.pendingResponse = []byte{0xAA}
	c.session.hasPendingResponse = true

	atr := c.Reset(true)
	if len(atr) != 23 {
		t.Fatalf("Reset returned %d bytes, want 23", len(atr))
	}
	if c.session.hasPendingRequest || c.session.hasPendingResponse {
		t.Fatalf("Reset left chaining state behind: %+v", c.session)
	}
}

func TestUnknownInstructionReturns6D00(t *testing.T) {
	c, _ := testCard(t)
	resp := c.ProcessAPDU([]byte{0x00, 0xFF, 0x00, 0x00})
	if !bytes.Equal(resp, []byte{0x6D, 0x00}) {
		t.Fatalf("got % X, want 6D 00", resp)
	}
}

func TestMalformedAPDUReturns6D00(t *testing.T) {
	c, _ := testCard(t)
	resp := c.ProcessAPDU([]byte{0x00, 0xA4, 0x04})
	if !bytes.Equal(resp, []byte{0x6D, 0x00}) {
		t.Fatalf("got % X, want 6D 00", resp)
	}
}

func TestLoggerDebugsEveryDispatch(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	tmpl := &x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "pivert test"}}
	certDER, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}
	log := &spyLogger{}
	c, err := NewCard(certDER, key, Config{Logger: log})
	if err != nil {
		t.Fatalf("NewCard: %v", err)
	}

	c.ProcessAPDU([]byte{0x00, 0x20, 0x00, 0x80, 0x00})
	if log.debugCalls != 1 {
		t.Fatalf("debugCalls = %d, want 1", log.debugCalls)
	}
	if log.errorCalls != 0 {
		t.Fatalf("errorCalls = %d, want 0 for a recognized instruction", log.errorCalls)
	}
}

func TestLoggerErrorsOnUnknownConditions(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	tmpl := &x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "pivert test"}}
	certDER, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}
	log := &spyLogger{}
	c, err := NewCard(certDER, key, Config{Logger: log})
	if err != nil {
		t.Fatalf("NewCard: %v", err)
	}

	c.ProcessAPDU([]byte{0x00, 0xFF, 0x00, 0x00})
	raw := []byte{0x00, 0xCB, 0x3F, 0xFF, 0x05, 0x5C, 0x03, 0x5F, 0xFF, 0xFE, 0x00}
	c.ProcessAPDU(raw)

	if log.errorCalls != 2 {
		t.Fatalf("errorCalls = %d, want 2 (unknown INS + unknown GET DATA tag)", log.errorCalls)
	}
}
