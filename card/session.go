package card

import "github.com/go-pivert/pivert/internal/apdu"

// session holds the chaining state described in spec.md section 3: at
// most one pending (growable) request buffer and one pending response
// buffer holding the bytes not yet drained, both owned by a single Card instance and never
// shared across instances.
type session struct {
	pendingRequest    []byte
	hasPendingRequest bool

	pendingResponse    []byte
	hasPendingResponse bool

	apduCount  uint64
	drainCount uint64
}

func (s *session) appendRequest(data []byte) {
	s.pendingRequest = append(s.pendingRequest, data...)
	s.hasPendingRequest = true
}

func (s *session) takeRequest() []byte {
	payload := s.pendingRequest
	s.pendingRequest = nil
	s.hasPendingRequest = false
	return payload
}

func (s *session) clearRequest() {
	s.pendingRequest = nil
	s.hasPendingRequest = false
}

// clearResponse drops any in-flight response chaining. Called whenever a
// non-GET-RESPONSE APDU arrives while a response is still being drained,
// per the adopted open-question resolution in spec.md section 9: the
// interleaving APDU wins and the abandoned response is not resumed.
func (s *session) clearResponse() {
	s.pendingResponse = nil
	s.hasPendingResponse = false
}

// responseChunkSize is the number of body bytes released per outbound
// APDU during response chaining (spec.md section 4.5).
const responseChunkSize = 255

// chain splits body across GET RESPONSE draws when it exceeds one short
// APDU's worth of data, storing the remainder in the session and
// returning the first segment plus its status word.
func (s *session) chain(body []byte) (segment []byte, sw uint16) {
	if len(body) <= responseChunkSize {
		return body, apdu.SWSuccess
	}
	s.pendingResponse = body[responseChunkSize:]
	s.hasPendingResponse = true
	return body[:responseChunkSize], apdu.SWMoreData(len(s.pendingResponse))
}

// drain serves the next segment of a pending response, or 61 00 if none
// is pending (the open-question resolution in spec.md section 9 keeps
// this bit-compatible with the source rather than 6A82).
func (s *session) drain() (segment []byte, sw uint16) {
	s.drainCount++
	if !s.hasPendingResponse {
		return nil, apdu.SWMoreData(0)
	}
	body := s.pendingResponse
	if len(body) <= responseChunkSize {
		s.clearResponse()
		return body, apdu.SWSuccess
	}
	s.pendingResponse = body[responseChunkSize:]
	return body[:responseChunkSize], apdu.SWMoreData(len(s.pendingResponse))
}
