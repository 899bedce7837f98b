package realtime

import (
	"strings"

	"github.com/google/uuid"
)

// RoomID names a broadcast group such as "user:<id>" or "task:<id>".
type RoomID string

const (
	userRoomPrefix = "user:"
	teamRoomPrefix = "team:"
	taskRoomPrefix = "task:"
)

// UserRoom is joined by every connection of userID.
func UserRoom(userID uuid.UUID) RoomID { return RoomID(userRoomPrefix + userID.String()) }

// TeamRoom is joined by every connection whose session lists teamID.
func TeamRoom(teamID uuid.UUID) RoomID { return RoomID(teamRoomPrefix + teamID.String()) }

// TaskRoom is joined explicitly by clients viewing taskID.
func TaskRoom(taskID string) RoomID { return RoomID(taskRoomPrefix + taskID) }

// IsTaskRoom reports whether r is a task room.
func (r RoomID) IsTaskRoom() bool { return strings.HasPrefix(string(r), taskRoomPrefix) }
