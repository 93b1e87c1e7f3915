package sockjs

import "strings"

// Frame type tags, one byte at the start of every SockJS frame.
const (
	frameOpen      = 'o'
	frameHeartbeat = 'h'
	frameArray     = 'a'
	frameMessage   = 'm'
	frameClose     = 'c'
)

// OpenFrame, HeartbeatFrame are the two frames with no payload.
const (
	OpenFrame      = string(frameOpen)
	HeartbeatFrame = string(frameHeartbeat)
)

// Standard close reasons used by this server. None of them contain
// characters that need JSON escaping.
const (
	closeReasonGoAway              = "Go away!"
	closeReasonAnotherConnOpen     = "Another connection still open"
	closeReasonIPSessionMismatch   = "IP session mismatch"
	closeReasonConnectionInterrupt = "Connection interrupted"
)

// Close codes used by the server.
const (
	CloseAbruptDisconnect = 1002
	CloseAnotherConnOpen  = 2010
	CloseGoAway           = 3000
)

// CloseReason is a (code, message) pair, preserved on a Session from the
// moment it enters CLOSING through to CLOSED.
type CloseReason struct {
	Code    int
	Message string
}

var (
	closeGoAway      = CloseReason{CloseGoAway, closeReasonGoAway}
	closeAnotherConn = CloseReason{CloseAnotherConnOpen, closeReasonAnotherConnOpen}
	closeIPMismatch  = CloseReason{CloseAnotherConnOpen, closeReasonIPSessionMismatch}
)

// encodeMessage JSON-encodes a single application message for inclusion
// in an array frame's payload list. The returned string is the *encoded*
// form -- callers join already-encoded strings with commas rather than
// re-encoding, so that JSON escape choices made here survive a later
// coalescing flush.
func encodeMessage(msg interface{}) (string, error) {
	b, err := jsonMarshal(msg)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// arrayFrame wraps a single already-encoded JSON value as a canonical
// one-element array frame: a[<json>].
func arrayFrame(encoded string) string {
	var b strings.Builder
	b.Grow(len(encoded) + 3)
	b.WriteByte(frameArray)
	b.WriteByte('[')
	b.WriteString(encoded)
	b.WriteByte(']')
	return b.String()
}

// coalesceFrame joins N already-encoded JSON values with commas into a
// single array frame: a[s1,s2,...]. Joining the raw encoded strings
// (rather than re-encoding the slice) is required so that JSON escape
// choices already made by encodeMessage are preserved verbatim.
func coalesceFrame(encoded []string) string {
	var b strings.Builder
	n := 3
	for _, s := range encoded {
		n += len(s) + 1
	}
	b.Grow(n)
	b.WriteByte(frameArray)
	b.WriteByte('[')
	for i, s := range encoded {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s)
	}
	b.WriteByte(']')
	return b.String()
}

// messageFrame wraps a single already-encoded JSON value using the
// alternate single-message form: m<json>. The canonical form produced by
// this codec is always the array form (arrayFrame); messageFrame exists
// because the protocol permits it. Nothing in this package calls it: raw
// sessions send the bare encoded value with no frame tag.
func messageFrame(encoded string) string {
	return string(frameMessage) + encoded
}

// closeFrame renders the close frame: c[<code>,"<reason>"].
func closeFrame(reason CloseReason) string {
	var b strings.Builder
	b.WriteByte(frameClose)
	b.WriteByte('[')
	b.WriteString(itoa(reason.Code))
	b.WriteString(",\"")
	b.WriteString(reason.Message)
	b.WriteString("\"]")
	return b.String()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// decodeFrame decodes an inbound request payload: a JSON array of
// strings. A single scalar string (as can arrive over the bidirectional
// WebSocket transport) is coerced into a one-element list before
// dispatch.
func decodeFrame(payload []byte) ([]string, error) {
	var arr []string
	if err := jsonUnmarshal(payload, &arr); err == nil {
		return arr, nil
	}

	var scalar string
	if err := jsonUnmarshal(payload, &scalar); err != nil {
		return nil, err
	}
	return []string{scalar}, nil
}
