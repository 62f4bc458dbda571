// Package directory implements the pre-key directory and mailbox that PQXDH
// parties meet through, plus an HTTP client for it.
//
// The directory stores each user's published bundle and hands out at most one
// one-time pre-key per fetch, removing it as it does so. It also queues
// encoded handshake messages for recipients until they acknowledge them.
// It never sees private keys or plaintext.
//
// HTTP API
//
//	POST /bundles/{user}          store a PublishedBundle; one-time keys are merged
//	GET  /bundles/{user}          return a KeyBundle, consuming one one-time key
//	POST /messages/{user}         enqueue an Envelope for {user}
//	GET  /messages/{user}?limit=N return up to N queued envelopes, oldest first
//	POST /messages/{user}/ack     {"ids": [...]} drop the listed envelopes
//
// Responses are JSON; errors carry {"error": "..."} and a 4xx/5xx status.
package directory
