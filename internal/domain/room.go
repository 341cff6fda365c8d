package domain

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// RoomID — числовой идентификатор комнаты (SERIAL в БД).
type RoomID int64

// MaxRoomID — rooms.id и room_id в БД имеют тип INTEGER.
const MaxRoomID = math.MaxInt32

// ErrInvalidRoomID — roomId не число и не строка с числом.
var ErrInvalidRoomID = errors.New("invalid room id")

// ParseRoomID принимает "7", " 7 " и т.п.
func ParseRoomID(s string) (RoomID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, ErrInvalidRoomID
	}
	return roomIDFrom(n)
}

func (id RoomID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// UnmarshalJSON: веб-клиент шлёт roomId строкой, старый клиент — числом.
func (id *RoomID) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return ErrInvalidRoomID
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return ErrInvalidRoomID
		}
		v, err := ParseRoomID(s)
		if err != nil {
			return err
		}
		*id = v
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return ErrInvalidRoomID
	}
	v, err := roomIDFrom(n)
	if err != nil {
		return err
	}
	*id = v
	return nil
}

func roomIDFrom(n int64) (RoomID, error) {
	if n <= 0 || n > MaxRoomID {
		return 0, ErrInvalidRoomID
	}
	return RoomID(n), nil
}

type Room struct {
	ID        RoomID    `db:"id"`
	Slug      string    `db:"slug"`
	AdminID   UserID    `db:"admin_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *Room) IsAdmin(userID UserID) bool {
	return r != nil && userID != "" && r.AdminID == userID
}
