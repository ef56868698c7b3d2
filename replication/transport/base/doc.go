// Package base provides the protocol independent part of the broadcast
// transport: sealing payloads into authenticated envelopes, validating inbound
// envelopes and pacing outgoing datagrams. Network specifics are delegated to
// an IConnector (udp, mem).
//
// Envelope layout:
//
//	clear header     16 bytes: version, time, real length, padded length (u32, big endian)
//	sealed header    16 bytes: the clear header encrypted with the namespace key
//	sealed payload   padded length bytes: the zero padded payload, encrypted
//
// Receive Validation (in this order, first failure drops the datagram):
//
//  1. size of at least two headers
//  2. version equals EnvelopeVersion
//  3. header time within MaxClockSkew of the local clock
//  4. padded length block aligned and equal to the remaining bytes, real
//     length not larger than padded length
//  5. key identification: the clear header is encrypted with every configured
//     key in order, the first key that reproduces the sealed header wins
//
// Dropped datagrams are logged at debug level and counted in
// dfs_transport_dropped_total with the failed step as reason.
//
// Thread Safety:
//
//	Broadcast and Close may be called concurrently. Recv must only be called
//	from a single goroutine.
package base
