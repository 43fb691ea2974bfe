// SPDX-License-Identifier: Apache-2.0

// Package client implements the interactive client application runtime.
//
// It wires the key vault, encrypted conversation services, terminal UI and
// the background sync job into a single process lifecycle: unlock (or first
// time setup), run the conversation screens, and loop back to the unlock
// screen whenever the vault locks.
package client
