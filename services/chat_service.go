//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
// Package services exposes the chat application boundary consumed by
// the transport layer.
package services

import (
	"context"

	"mingle-chat/auth"
	"mingle-chat/contract"
	"mingle-chat/domain"
	"mingle-chat/runtime"
)

type IChatService interface {
	// Authenticate resolves a bearer credential to a user identity.
	// It runs exactly once per connection, before anything else.
	Authenticate(ctx context.Context, credential string) (domain.UserID, error)

	// Connect registers an authenticated connection and implicitly
	// subscribes it to the user's private channel.
	Connect(connID domain.ConnectionID, userID domain.UserID, sink contract.EventSink)

	// Disconnect tears down every registry entry of the connection.
	Disconnect(connID domain.ConnectionID)

	Join(ctx context.Context, connID domain.ConnectionID, userID domain.UserID, roomID domain.RoomID) (domain.Room, error)
	Leave(connID domain.ConnectionID, roomID domain.RoomID)
	Send(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error)
	History(ctx context.Context, cmd domain.GetHistoryCommand) ([]domain.Message, error)
}

type ChatService struct {
	verifier auth.CredentialVerifier
	registry contract.IRegistry
	hub      *runtime.Hub
}

func NewChatService(verifier auth.CredentialVerifier, registry contract.IRegistry, hub *runtime.Hub) *ChatService {
	return &ChatService{verifier: verifier, registry: registry, hub: hub}
}

func (s *ChatService) Authenticate(ctx context.Context, credential string) (domain.UserID, error) {
	return s.verifier.VerifyCredential(ctx, credential)
}

func (s *ChatService) Connect(connID domain.ConnectionID, userID domain.UserID, sink contract.EventSink) {
	s.registry.Register(connID, userID, sink)
}

func (s *ChatService) Disconnect(connID domain.ConnectionID) {
	s.hub.Disconnect(connID)
}

func (s *ChatService) Join(ctx context.Context, connID domain.ConnectionID,
	userID domain.UserID, roomID domain.RoomID) (domain.Room, error) {
	return s.hub.Join(ctx, connID, userID, roomID)
}

func (s *ChatService) Leave(connID domain.ConnectionID, roomID domain.RoomID) {
	s.hub.Leave(connID, roomID)
}

func (s *ChatService) Send(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error) {
	return s.hub.Send(ctx, cmd)
}

func (s *ChatService) History(ctx context.Context, cmd domain.GetHistoryCommand) ([]domain.Message, error) {
	return s.hub.History(ctx, cmd)
}
