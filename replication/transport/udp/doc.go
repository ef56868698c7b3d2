// Package udp implements the broadcast transport on top of UDP sockets. It
// provides the concrete IConnector of the base package for real networks.
//
// The connector binds the first free port of the configured range with
// SO_BROADCAST enabled and sends every envelope to the broadcast address on
// each port of the range, since a sender can not know which port a peer got.
// The kernel delivers broadcasts to the sending socket as well.
//
// Key Components:
//
//   - connector: udp specific implementation of base.IConnector
//
//   - conn: the bound socket, implementing base.IConn
package udp
