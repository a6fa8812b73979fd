package bitget

import "time"

const (
	instTypeFutures = "USDT-FUTURES"
	tickerChannel   = "ticker"

	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second
	maxRetries       = 10
)

// subscribeRequest is the control frame for subscribe/unsubscribe ops
type subscribeRequest struct {
	Op   string         `json:"op"`
	Args []subscribeArg `json:"args"`
}

type subscribeArg struct {
	InstType string `json:"instType"`
	Channel  string `json:"channel"`
	InstId   string `json:"instId"`
}

// tickerResponse is an inbound ticker data frame
type tickerResponse struct {
	Action string       `json:"action"`
	Event  string       `json:"event"` // subscribe ack, error, pong
	Code   int          `json:"code"`
	Msg    string       `json:"msg"`
	Arg    subscribeArg `json:"arg"`
	Data   []tickerData `json:"data"`
	Ts     int64        `json:"ts"` // milliseconds
}

type tickerData struct {
	InstId string `json:"instId"`
	LastPr string `json:"lastPr"`
}
