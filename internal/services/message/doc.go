// Package message sends and receives first messages over the directory.
//
// Every message is a complete PQXDH handshake: Send derives a new session
// with the recipient and seals the plaintext into the handshake payload;
// Receive runs the publisher side for each queued envelope and opens the
// payload with the derived secret. Envelopes are acknowledged once handled,
// including those that can never succeed, so they are not retried forever.
// A pre-key store failure (pqxdh.ErrStore) stops Receive before the failing
// envelope is acknowledged, so it is retried on the next call.
package message
