// Package pair provides two in-memory duplex endpoints wired to each other,
// for tests and for connecting components inside one process without a
// socket. Bytes written to one endpoint are copied into the other's
// readable half; a write stays pending while the peer is over its mark.
package pair
