package stores

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/ThalefangN/get-more-bw-87-sub000/db"

	"github.com/redis/go-redis/v9"
)

const ChangeChannelPrefix = "changes:"

type ChangeOp string

const (
	ChangeInsert ChangeOp = "INSERT"
	ChangeUpdate ChangeOp = "UPDATE"
	ChangeDelete ChangeOp = "DELETE"
)

// Change tells subscribers that a row moved; they re-fetch rather than patch.
type Change struct {
	Table  string            `json:"table"`
	Op     ChangeOp          `json:"op"`
	RowID  string            `json:"rowId"`
	Filter map[string]string `json:"filter,omitempty"`
}

// Rooms lists the socket rooms interested in c: every listener of the table,
// plus one room per equality filter the row satisfies.
func (c Change) Rooms() []string {
	rooms := []string{TableRoom(c.Table, "", "")}
	cols := make([]string, 0, len(c.Filter))
	for col := range c.Filter {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		rooms = append(rooms, TableRoom(c.Table, col, c.Filter[col]))
	}
	return rooms
}

// TableRoom names the room for a table, or for one column=value filter on it.
func TableRoom(table, col, val string) string {
	if col == "" {
		return "table:" + table
	}
	return "table:" + table + ":" + col + "=" + val
}

// ParseFilter reads a "col=eq.val" or "col=val" filter string.
func ParseFilter(filter string) (col, val string, ok bool) {
	col, val, ok = strings.Cut(filter, "=")
	if !ok || col == "" {
		return "", "", false
	}
	val = strings.TrimPrefix(val, "eq.")
	return col, val, val != ""
}

// PublishChange is a no-op until Redis is connected.
func PublishChange(ctx context.Context, c Change) error {
	if db.RedisClient == nil {
		return nil
	}
	val, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return db.RedisClient.Publish(ctx, ChangeChannelPrefix+c.Table, val).Err()
}

func SubscribeToChanges(ctx context.Context) *redis.PubSub {
	return db.RedisClient.PSubscribe(ctx, ChangeChannelPrefix+"*")
}
