package protocol

import "fmt"

// Outbound commands are fixed-schema: template substitution, no writer.
const (
	initProfileTemplate = "<?xml version=\"1.0\" encoding=\"UTF-8\" ?>\n" +
		"<CS_RMC version=1>\n<command>\ninit profile\n</command>\n</CS_RMC>"
	measurementTemplate = "<?xml version=\"1.0\" encoding=\"UTF-8\" ?>\n" +
		"<CS_RMC version=1>\n<measurement>\n<red>%d</red>\n<green>%d</green>\n<blue>%d</blue>\n</measurement>\n</CS_RMC>"
)

// EncodeInitProfile builds the handshake command. It is sent exactly once
// per established connection, before any measurement request.
func EncodeInitProfile() []byte {
	return []byte(initProfileTemplate)
}

// EncodeMeasurement builds a measurement request carrying c's channels as
// 8-bit integers.
func EncodeMeasurement(c Color) []byte {
	c8 := c.Canonical8()
	return fmt.Appendf(nil, measurementTemplate, c8.R, c8.G, c8.B)
}
