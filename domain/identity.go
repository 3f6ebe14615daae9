// Package domain contains core concepts of the chat system.
// No runtime, network, or UI logic should be added here.
package domain

// UserID is the opaque stable identifier of an authenticated user.
// It is resolved once per connection from a credential and never
// changes for the lifetime of that connection.
type UserID string

// ConnectionID identifies one live connection. A user may hold several
// connections at once (one per device), each with its own id.
type ConnectionID string

// RoomID identifies a persistent chat entity.
type RoomID string
