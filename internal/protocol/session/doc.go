// Package session owns the live instrument link: dialing, the shared
// measurement state record and the receiver/sender worker pair that keep
// it synchronized with the remote instrument.
package session
