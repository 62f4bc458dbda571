// Package main runs the pqxdh directory: it stores published pre-key bundles,
// hands out one one-time pre-key per fetch, and queues handshake envelopes for
// recipients until they fetch and acknowledge them.
//
// HTTP API
//
//	POST /bundles/{user}
//	    Publish a PublishedBundle. A changed identity key replaces the stored
//	    bundle; otherwise one-time pre-keys are merged by id.
//
//	GET /bundles/{user}
//	    Return a KeyBundle, consuming at most one one-time pre-key.
//
//	POST /messages/{user}
//	    Enqueue an Envelope for {user}. Responds 202 with the assigned id.
//
//	GET /messages/{user}?limit=N
//	    Return up to N queued Envelopes in arrival order (all if N is absent).
//
//	POST /messages/{user}/ack {"ids": [...]}
//	    Drop the listed envelopes.
//
// Behaviour
//
//   - With --mongo-uri, bundles and envelopes live in MongoDB; otherwise all
//     state is held in memory and lost on exit.
//   - Responses are JSON. Non-2xx statuses carry {"error": "..."}.
//   - Each request is access-logged through zap.
//   - The default listen address is :8080.
//
// The directory never sees private keys or plaintext.
package main
