package bitget

import "encoding/json"

// Keepalive abstracts the vendor's ping/pong framing. Bitget has shipped
// both a plain-text and a JSON variant, so the style is a config choice
// validated against the live endpoint rather than fixed here.
type Keepalive interface {
	PingFrame() []byte
	IsPong(msg []byte) bool
}

// NewKeepalive returns the keepalive for a configured style. Unknown styles
// fall back to the JSON variant used by the v2 public endpoint.
func NewKeepalive(style string) Keepalive {
	if style == "text" {
		return textKeepalive{}
	}
	return jsonKeepalive{}
}

// jsonKeepalive sends {"op":"ping"} and expects {"event":"pong"}.
type jsonKeepalive struct{}

func (jsonKeepalive) PingFrame() []byte {
	return []byte(`{"op":"ping"}`)
}

func (jsonKeepalive) IsPong(msg []byte) bool {
	var frame struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(msg, &frame); err != nil {
		return false
	}
	return frame.Event == "pong"
}

// textKeepalive sends the literal "ping" and expects "pong".
type textKeepalive struct{}

func (textKeepalive) PingFrame() []byte {
	return []byte("ping")
}

func (textKeepalive) IsPong(msg []byte) bool {
	return string(msg) == "pong"
}
