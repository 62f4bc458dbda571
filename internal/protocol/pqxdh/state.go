package pqxdh

// InitiatorState tracks an Initiator through one attempt.
type InitiatorState uint8

const (
	InitiatorStart InitiatorState = iota
	InitiatorBundleFetched
	InitiatorEphemeralGenerated
	InitiatorSecretDerived
	InitiatorMessageEncoded
	InitiatorDone

	InitiatorBundleInvalid
	InitiatorDerivationFailed
	InitiatorAborted
)

var initiatorStateNames = [...]string{
	InitiatorStart:              "start",
	InitiatorBundleFetched:      "bundle fetched",
	InitiatorEphemeralGenerated: "ephemeral generated",
	InitiatorSecretDerived:      "secret derived",
	InitiatorMessageEncoded:     "message encoded",
	InitiatorDone:               "done",
	InitiatorBundleInvalid:      "bundle invalid",
	InitiatorDerivationFailed:   "derivation failed",
	InitiatorAborted:            "aborted",
}

func (s InitiatorState) String() string {
	if int(s) < len(initiatorStateNames) {
		return initiatorStateNames[s]
	}
	return "unknown"
}

// Terminal reports whether no further stage may run.
func (s InitiatorState) Terminal() bool {
	return s >= InitiatorDone
}

// ResponderState tracks a Responder (the publisher role) through one attempt.
type ResponderState uint8

const (
	ResponderStart ResponderState = iota
	ResponderMessageDecoded
	ResponderKeysResolved
	ResponderSecretDerived
	ResponderDone

	ResponderMalformedMessage
	ResponderPreKeyUnavailable
	ResponderDerivationFailed
	ResponderStoreFailed
)

var responderStateNames = [...]string{
	ResponderStart:             "start",
	ResponderMessageDecoded:    "message decoded",
	ResponderKeysResolved:      "keys resolved",
	ResponderSecretDerived:     "secret derived",
	ResponderDone:              "done",
	ResponderMalformedMessage:  "malformed message",
	ResponderPreKeyUnavailable: "pre-key unavailable",
	ResponderDerivationFailed:  "derivation failed",
	ResponderStoreFailed:       "store failed",
}

func (s ResponderState) String() string {
	if int(s) < len(responderStateNames) {
		return responderStateNames[s]
	}
	return "unknown"
}

// Terminal reports whether no further stage may run.
func (s ResponderState) Terminal() bool {
	return s >= ResponderDone
}
