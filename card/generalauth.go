package card

import (
	"github.com/go-pivert/pivert/internal/apdu"
	"github.com/go-pivert/pivert/internal/tlv"
)

const (
	tagDynAuth     uint32 = 0x7C
	tagAuthRespPH  uint32 = 0x82
	tagChallengeIn uint32 = 0x81
)

// handleGeneralAuthenticate implements spec.md section 4.5's command
// chaining and raw-RSA signing for GENERAL AUTHENTICATE. A chained
// fragment is buffered and acknowledged immediately; the final fragment
// triggers assembly, parsing, and signing of the whole payload.
func (c *Card) handleGeneralAuthenticate(cmd *apdu.Command) []byte {
	if cmd.Chained() {
		c.session.appendRequest(cmd.Data)
		return c.respond(nil, apdu.SWSuccess)
	}

	c.session.appendRequest(cmd.Data)
	payload := c.session.takeRequest()

	challenge, err := parseChallenge(payload)
	if err != nil {
		return c.respond(nil, apdu.SWDataObjectMissing)
	}

	modLen := (c.key.N.BitLen() + 7) / 8
	if len(challenge) != modLen {
		return c.respond(nil, apdu.SWInsNotSupported)
	}

	signature, err := c.cfg.Signer.SignRaw(challenge)
	if err != nil {
		return c.respond(nil, apdu.SWInsNotSupported)
	}

	body, err := encodeAuthResponse(signature)
	if err != nil {
		return c.respond(nil, apdu.SWInsNotSupported)
	}
	return c.chainedResponse(body)
}

// parseChallenge extracts sign_data from the assembled 7C { 82 00, 81 L
// sign_data } dynamic authentication template.
func parseChallenge(payload []byte) ([]byte, error) {
	r := tlv.NewReader(payload)
	inner, err := r.ReadNested(tagDynAuth)
	if err != nil {
		return nil, err
	}
	if _, err := inner.ReadValue(tagAuthRespPH); err != nil {
		return nil, err
	}
	challenge, err := inner.ReadValue(tagChallengeIn)
	if err != nil {
		return nil, err
	}
	return challenge, nil
}

// encodeAuthResponse wraps signature as 7C L { 82 L signature }.
func encodeAuthResponse(signature []byte) ([]byte, error) {
	w := tlv.NewWriter()
	outer, err := w.OpenNested(tagDynAuth)
	if err != nil {
		return nil, err
	}
	if err := w.WriteValue(tagAuthRespPH, signature); err != nil {
		return nil, err
	}
	if err := outer.Close(); err != nil {
		return nil, err
	}
	return w.Encode()
}
