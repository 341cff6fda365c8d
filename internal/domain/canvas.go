package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

type OpKind string

const (
	OpDraw  OpKind = "draw"
	OpErase OpKind = "erase"
	OpClear OpKind = "clear"
)

func ParseOpKind(s string) (OpKind, error) {
	switch k := OpKind(s); k {
	case OpDraw, OpErase, OpClear:
		return k, nil
	default:
		return "", ErrInvalidOpKind
	}
}

// CanvasOp — строка журнала холста. Строки только добавляются:
// erase и clear тоже пишутся новыми строками.
type CanvasOp struct {
	ID        int64           `db:"id"`
	RoomID    RoomID          `db:"room_id"`
	UserID    UserID          `db:"user_id"`
	Kind      OpKind          `db:"kind"`
	Data      json.RawMessage `db:"data"`
	CreatedAt time.Time       `db:"created_at"`

	UserName string `db:"user_name"`
}

// Shape — видимая фигура после проигрывания журнала.
type Shape struct {
	OpID   int64           `json:"opId"`
	UserID UserID          `json:"userId"`
	Data   json.RawMessage `json:"data"`

	key   string
	dbKey string
}

// shapeRef — поля, по которым erase находит фигуру.
type shapeRef struct {
	ID   json.RawMessage `json:"id"`
	DbID json.RawMessage `json:"dbId"`
}

// Canvas — материализованное представление журнала комнаты.
// Применение операции с id <= последнего применённого игнорируется,
// поэтому повторное проигрывание того же журнала ничего не меняет.
type Canvas struct {
	shapes []Shape
	lastOp int64
}

func NewCanvas() *Canvas {
	return &Canvas{}
}

func (c *Canvas) Apply(op CanvasOp) {
	if op.ID != 0 {
		if op.ID <= c.lastOp {
			return
		}
		c.lastOp = op.ID
	}

	switch op.Kind {
	case OpDraw:
		ref := parseRef(op.Data)
		s := Shape{OpID: op.ID, UserID: op.UserID, Data: op.Data, key: ref.key, dbKey: ref.dbKey}
		if s.key != "" {
			for i := range c.shapes {
				if c.shapes[i].key == s.key {
					// last-writer-wins
					c.shapes[i] = s
					return
				}
			}
		}
		c.shapes = append(c.shapes, s)
	case OpErase:
		ref := parseRef(op.Data)
		if ref.key == "" && ref.dbKey == "" {
			return
		}
		kept := c.shapes[:0]
		for _, s := range c.shapes {
			if ref.matches(s) {
				continue
			}
			kept = append(kept, s)
		}
		c.shapes = kept
	case OpClear:
		c.shapes = nil
	}
}

// Shapes возвращает копию текущего набора фигур в порядке отрисовки.
func (c *Canvas) Shapes() []Shape {
	out := make([]Shape, len(c.shapes))
	copy(out, c.shapes)
	return out
}

func (c *Canvas) LastOpID() int64 { return c.lastOp }

// Materialize проигрывает операции в порядке создания.
func Materialize(ops []CanvasOp) []Shape {
	c := NewCanvas()
	for _, op := range ops {
		c.Apply(op)
	}
	return c.Shapes()
}

type parsedRef struct {
	key   string
	dbKey string
}

func (r parsedRef) matches(s Shape) bool {
	if r.key != "" && s.key == r.key {
		return true
	}
	if r.dbKey != "" {
		if s.dbKey == r.dbKey {
			return true
		}
		if s.OpID != 0 && strconv.FormatInt(s.OpID, 10) == r.dbKey {
			return true
		}
	}
	return false
}

func parseRef(data json.RawMessage) parsedRef {
	var ref shapeRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return parsedRef{}
	}
	return parsedRef{key: jsonKey(ref.ID), dbKey: jsonKey(ref.DbID)}
}

// jsonKey сводит 1 и "1" к одному ключу.
func jsonKey(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return ""
	}
	return n.String()
}
