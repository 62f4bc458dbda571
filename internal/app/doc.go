// Package app wires application dependencies for the CLI.
//
// It reads Config from viper (flags, PQXDH_* environment variables and an
// optional config file), then builds the concrete stores, directory client
// and high-level services, exposing them via the Wire struct for commands to
// use.
package app
