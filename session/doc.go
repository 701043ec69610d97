// Package session houses the bounded in-memory store of live dialogue
// sessions. The store enforces two capacity rules: at most one Open or
// Closing session per channel, and a global cap on concurrently tracked
// sessions with least-recently-active eviction. Sessions removed from the
// store are handed back to the caller so a final scoring pass can run before
// they are discarded.
package session
