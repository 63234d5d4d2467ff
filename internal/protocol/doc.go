// Package protocol owns the ColourSpace Link wire contract.
//
// Ownership boundary:
// - outbound command templates
// - inbound streaming parse into the measurement/shape model
// - frame/ length-prefix primitives
package protocol
