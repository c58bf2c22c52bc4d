// internal/ble/protocol/chunk.go
package protocol

// MaxChunkBytes is the largest single GATT write the board controllers
// accept without a negotiated MTU (23-byte ATT MTU minus 3 bytes header).
const MaxChunkBytes = 20

// SplitMessages slices a packet into writes of at most maxBytes, in order.
// Chunks alias packet. Returns nil for an empty packet or a non-positive
// maxBytes.
func SplitMessages(packet []byte, maxBytes int) [][]byte {
	if len(packet) == 0 || maxBytes <= 0 {
		return nil
	}

	chunks := make([][]byte, 0, (len(packet)+maxBytes-1)/maxBytes)
	for len(packet) > 0 {
		n := maxBytes
		if len(packet) < n {
			n = len(packet)
		}
		chunks = append(chunks, packet[:n:n])
		packet = packet[n:]
	}
	return chunks
}
