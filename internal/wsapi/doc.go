// Package wsapi is the WebSocket adapter.
//
// Every accepted connection becomes a broadcast subscriber. Inbound text
// frames are commands, fire-and-forget: the sender learns the outcome only
// through the broadcast that follows. Malformed frames are logged and
// dropped without closing the connection. Binary frames are ignored.
package wsapi
