package contract

import (
	"context"
	"reflect"

	"mingle-chat/domain"
	"mingle-chat/domain/event"
)

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes, avoiding the need
// for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// EventSink is one delivery endpoint, typically the buffered outbound
// channel of a live connection.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry is the process-local map of who is currently listening.
// It is a rebuildable cache, never authoritative for room participation.
type IRegistry interface {
	Register(connID domain.ConnectionID, userID domain.UserID, sink EventSink)
	Unregister(connID domain.ConnectionID)
	Subscribe(connID domain.ConnectionID, roomID domain.RoomID)
	Unsubscribe(connID domain.ConnectionID, roomID domain.RoomID)
	IsSubscribed(connID domain.ConnectionID, roomID domain.RoomID) bool
	SinksForRoom(roomID domain.RoomID) []EventSink
	SinksForUser(userID domain.UserID) []EventSink
	HasUserInRoom(userID domain.UserID, roomID domain.RoomID) bool
}
