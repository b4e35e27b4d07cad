package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	socketio "github.com/zishang520/socket.io/v2/socket"
	"github.com/zishang520/engine.io/v2/types"
	"go.uber.org/zap"

	"github.com/ThalefangN/get-more-bw-87-sub000/geolocation"
	"github.com/ThalefangN/get-more-bw-87-sub000/models"
	"github.com/ThalefangN/get-more-bw-87-sub000/stores"
	"github.com/ThalefangN/get-more-bw-87-sub000/utils"
)

// TokenVerifier resolves a bearer token to the user id it was issued for.
type TokenVerifier func(token string) (string, error)

// Tables clients may subscribe to for change notifications.
var subscribableTables = map[string]bool{
	"orders":        true,
	"couriers":      true,
	"notifications": true,
	"products":      true,
	"stores":        true,
}

func UserRoom(userID string) string {
	return "user:" + userID
}

// JoinHook runs when a socket joins its user room. ctx is cancelled when the
// socket disconnects or joins again.
type JoinHook func(ctx context.Context, userID string)

// InitSocketIO creates the Socket.IO server. A socket only acts for a user
// after joinUserRoom presents a valid token.
func InitSocketIO(verify TokenVerifier, onJoin JoinHook) *socketio.Server {
	opts := &socketio.ServerOptions{}
	opts.SetCors(&types.Cors{
		Origin: "*",
	})

	io := socketio.NewServer(nil, opts)

	io.On("connection", func(clients ...any) {
		socket := clients[0].(*socketio.Socket)
		utils.Logger.Info("A user connected", zap.String("socketID", string(socket.Id())))

		var mu sync.Mutex
		var userID string
		stopJoin := func() {}
		currentUser := func() string {
			mu.Lock()
			defer mu.Unlock()
			return userID
		}

		// joinUserRoom - client authenticates and joins its personal room
		socket.On("joinUserRoom", func(args ...any) {
			data, ok := payload(args)
			if !ok {
				return
			}
			token, _ := data["token"].(string)
			id, err := verify(token)
			if err != nil {
				utils.Logger.Warn("Rejected joinUserRoom", zap.String("socketID", string(socket.Id())), zap.Error(err))
				socket.Emit("notice", models.Notice{Level: models.NoticeError, Message: "Session expired, please sign in again"})
				return
			}
			joinCtx, cancel := context.WithCancel(context.Background())
			mu.Lock()
			stopJoin()
			userID = id
			stopJoin = cancel
			mu.Unlock()
			socket.Join(socketio.Room(UserRoom(id)))
			utils.Logger.Info("User joined room", zap.String("userId", id))
			if onJoin != nil {
				go onJoin(joinCtx, id)
			}
		})

		// locationUpdate - device answers a locateRequest with a fix
		socket.On("locationUpdate", func(args ...any) {
			id := currentUser()
			data, ok := payload(args)
			if id == "" || !ok {
				return
			}
			lat, latOK := data["lat"].(float64)
			lng, lngOK := data["lng"].(float64)
			pos := models.Coordinate{Lat: lat, Lng: lng}
			if !latOK || !lngOK || !pos.Valid() {
				return
			}
			if err := stores.ReportFix(context.Background(), id, pos); err != nil {
				utils.Logger.Error("Error storing location fix", zap.String("userId", id), zap.Error(err))
			}
		})

		// locationError - device could not produce a fix
		socket.On("locationError", func(args ...any) {
			id := currentUser()
			data, ok := payload(args)
			if id == "" || !ok {
				return
			}
			kind, _ := data["kind"].(string)
			switch kind {
			case stores.DeviceErrPermissionDenied, stores.DeviceErrUnavailable, stores.DeviceErrTimeout:
			default:
				kind = stores.DeviceErrUnavailable
			}
			if err := stores.ReportFixError(context.Background(), id, kind); err != nil {
				utils.Logger.Error("Error storing location error", zap.String("userId", id), zap.Error(err))
			}
		})

		// permissionChange - device permission state moved
		socket.On("permissionChange", func(args ...any) {
			id := currentUser()
			data, ok := payload(args)
			if id == "" || !ok {
				return
			}
			state, _ := data["state"].(string)
			perm := geolocation.Permission(state)
			if !perm.Valid() {
				return
			}
			if err := stores.SetPermission(context.Background(), id, perm); err != nil {
				utils.Logger.Error("Error storing permission", zap.String("userId", id), zap.Error(err))
			}
		})

		// subscribe - {table, filter} change notifications
		socket.On("subscribe", func(args ...any) {
			if room, ok := subscriptionRoom(args); ok && currentUser() != "" {
				socket.Join(socketio.Room(room))
			}
		})

		socket.On("unsubscribe", func(args ...any) {
			if room, ok := subscriptionRoom(args); ok {
				socket.Leave(socketio.Room(room))
			}
		})

		// disconnect - socket.io drops the socket from every room it joined
		socket.On("disconnect", func(args ...any) {
			mu.Lock()
			stopJoin()
			mu.Unlock()
			utils.Logger.Info("User disconnected",
				zap.String("socketID", string(socket.Id())), zap.String("userId", currentUser()))
		})
	})

	return io
}

func payload(args []any) (map[string]any, bool) {
	if len(args) == 0 {
		return nil, false
	}
	data, ok := args[0].(map[string]any)
	return data, ok
}

func subscriptionRoom(args []any) (string, bool) {
	data, ok := payload(args)
	if !ok {
		return "", false
	}
	table, _ := data["table"].(string)
	if !subscribableTables[table] {
		return "", false
	}
	filter, _ := data["filter"].(string)
	if filter == "" {
		return stores.TableRoom(table, "", ""), true
	}
	col, val, ok := stores.ParseFilter(filter)
	if !ok {
		return "", false
	}
	return stores.TableRoom(table, col, val), true
}

// StartChangeFeed relays row changes published on Redis to the interested
// rooms until ctx is cancelled.
func StartChangeFeed(ctx context.Context, b Broadcaster) {
	pubsub := stores.SubscribeToChanges(ctx)
	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if err := relayChange(b, msg.Payload); err != nil {
					utils.Logger.Error("Error relaying change", zap.String("channel", msg.Channel), zap.Error(err))
				}
			}
		}
	}()
}

func relayChange(b Broadcaster, raw string) error {
	var change stores.Change
	if err := json.Unmarshal([]byte(raw), &change); err != nil {
		return err
	}
	return b.EmitTo(change.Rooms(), "tableChanged", change)
}

// GetHandler returns the HTTP handler for Socket.IO
func GetHandler(io *socketio.Server) http.Handler {
	return io.ServeHandler(nil)
}
