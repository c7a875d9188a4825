// Package event is a type-keyed event bus and the player.Handler that feeds
// host callbacks into it.
//
// Listeners are selected by the static type argument of Listen, so a listener
// for *Chat never sees a *Move. Every registration returns a Handle, keyed or
// not, and closing it unregisters the listener.
package event
