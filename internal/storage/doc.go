// Package storage opens the sqlite database that holds the WhatsApp device
// identity and Signal session state, so pairing survives restarts.
package storage
