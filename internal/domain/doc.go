// Package domain defines the key records, bundles, envelopes and interfaces
// shared across the app. It contains plain types and contracts only; the
// handshake itself lives in internal/protocol/pqxdh.
package domain
