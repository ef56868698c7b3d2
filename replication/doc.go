// Package replication contains everything that moves file changes between
// peers: the packet format, the authenticated broadcast transport and the
// shared configuration and logging setup.
//
// Subpackages:
//   - common: configuration structures and the logger factory
//   - wire: fixed-width encoding of replication packets
//   - transport: the ITransport abstraction and its connectors
//     (base for envelopes and validation, udp for the real network, mem for
//     running several peers in one process)
package replication
