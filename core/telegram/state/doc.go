// Package state keeps one in-progress conversation per chat. It is
// domain-agnostic: the session type is a parameter, and the store only
// guarantees that a chat has at most one session and that access to it is
// serialized per chat.
package state
