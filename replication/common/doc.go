// Package common provides the configuration structures and logging utilities
// shared by the replication transport, the store engine and the CLI.
//
// The package focuses on:
//   - Configuration structures for the engine and the broadcast transport
//   - Custom logging implementation integrated with the Dragonboat logger facade
//
// Key Components:
//
//   - EngineConfig: store root, configured namespaces, timings of the periodic
//     sync task and the transport settings.
//
//   - TransportConfig: port range, broadcast address, accepted clock skew and
//     send pacing of the UDP broadcast transport.
//
//   - Logger: Custom logging implementation that integrates with Dragonboat's
//     logging system while providing consistent formatting across the application.
package common
