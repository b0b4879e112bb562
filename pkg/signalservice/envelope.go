package signalservice

// Envelope encryption belongs to the message-receiving collaborator; the
// configuration layer only needs the key sizes to shape a signaling key.
const (
	// CipherKeySize is the AES-256 half of a signaling key.
	CipherKeySize = 32
	// MACKeySize is the truncated HMAC-SHA256 half of a signaling key.
	MACKeySize = 20
)
