package signaling

import "encoding/json"

// Wire message types. welcome, signal, peer_joined, and peer_left flow
// server-to-client; only signal is accepted client-to-server.
const (
	typeWelcome    = "welcome"
	typeSignal     = "signal"
	typePeerJoined = "peer_joined"
	typePeerLeft   = "peer_left"
)

// inboundEnvelope is the client-to-server frame. Any extra fields, including
// a forged "from", are ignored; the relay stamps sender identity itself.
type inboundEnvelope struct {
	Type string          `json:"type"`
	To   string          `json:"to"`
	Data json.RawMessage `json:"data"`
}

func welcomeFrame(peers []string) []byte {
	if peers == nil {
		peers = []string{}
	}
	b, _ := json.Marshal(struct {
		Type  string   `json:"type"`
		Peers []string `json:"peers"`
	}{typeWelcome, peers})
	return b
}

func signalFrame(from string, data json.RawMessage) []byte {
	b, _ := json.Marshal(struct {
		Type string          `json:"type"`
		From string          `json:"from"`
		Data json.RawMessage `json:"data,omitempty"`
	}{typeSignal, from, data})
	return b
}

func peerJoinedFrame(peer string) []byte {
	b, _ := json.Marshal(struct {
		Type string `json:"type"`
		Peer string `json:"peer"`
	}{typePeerJoined, peer})
	return b
}

func peerLeftFrame(peer string) []byte {
	b, _ := json.Marshal(struct {
		Type string `json:"type"`
		Peer string `json:"peer"`
	}{typePeerLeft, peer})
	return b
}
