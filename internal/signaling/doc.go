// Package signaling implements the multi-room WebSocket relay used for
// peer-to-peer connection setup: rooms, peer membership, and verbatim
// forwarding of opaque signal payloads between named peers.
package signaling
