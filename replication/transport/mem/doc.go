// Package mem implements the broadcast transport as an in-process hub. Every
// transport created from the same Hub behaves like a peer on one broadcast
// domain: ports are slots in the hub and a datagram sent to a port is copied
// into the inbox of the transport bound to it.
//
// The hub is used to run several engines in one process, mostly in tests. Like
// UDP it drops datagrams when an inbox is full instead of blocking the sender.
package mem
