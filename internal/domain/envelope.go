package domain

// Envelope carries one encoded handshake message through the directory mailbox.
type Envelope struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Handshake []byte `json:"handshake"`
	Timestamp int64  `json:"timestamp"`
}

// DecryptedMessage is returned by MessageService.Receive.
type DecryptedMessage struct {
	ID        string
	From      string
	Plaintext []byte
	Timestamp int64
	// Degraded is set when the publisher derived without the referenced
	// one-time pre-key; such sessions do not match the initiator's secret.
	Degraded bool
}
