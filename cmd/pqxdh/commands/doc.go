// Package commands defines the pqxdh CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init         Create the local identity
//   - fingerprint  Print the identity fingerprint
//   - register     Generate pre-keys and publish the bundle to a directory
//   - replenish    Top up the published one-time pre-keys
//   - send         Run a handshake with a peer and send a first message
//   - recv         Fetch and decrypt queued first messages
//
// # Configuration
//
// Every persistent flag is bound through viper, so it may also be given as a
// PQXDH_* environment variable (PQXDH_PASSPHRASE, PQXDH_REDIS_ADDR, ...) or in
// the file named by --config.
//
// The root command builds the dependency graph (stores, services, directory
// client) once before any subcommand runs.
package commands
