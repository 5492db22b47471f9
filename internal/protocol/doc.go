// Package protocol owns the packet wire contract.
//
// Ownership boundary:
// - bitfield: sub-byte storage and single-byte spans
// - field: typed field values and their per-kind encodings
// - packet: ordered field containers, ID prefixes, atomic decode
// - router: ID-prefix demultiplexing over a shared channel
package protocol
