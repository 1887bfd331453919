// Package cli provides the interactive SafeBank command-line client.
//
// It wires configuration, the local credential store, the HTTP API client and
// an interactive REPL. Typical flow: restore a persisted session, then execute
// user commands until exit.
//
// Key features:
//   - Register / Login / account challenge verification / Logout
//   - Send transactions with risk-gated OTP verification
//   - Transaction history, fraud alerts and profile display
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
