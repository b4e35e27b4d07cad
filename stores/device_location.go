package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ThalefangN/get-more-bw-87-sub000/db"
	"github.com/ThalefangN/get-more-bw-87-sub000/geolocation"
	"github.com/ThalefangN/get-more-bw-87-sub000/models"

	"github.com/redis/go-redis/v9"
)

const (
	UserGeoKeyPrefix        = "geo:user:"
	GeoFixChannelPrefix     = "geo:fix:"
	GeoPermissionChanPrefix = "geo:perm:"
	userGeoTTL              = 24 * time.Hour
)

// Device error kinds reported over the realtime channel.
const (
	DeviceErrPermissionDenied = "permission_denied"
	DeviceErrUnavailable      = "unavailable"
	DeviceErrTimeout          = "timeout"
)

// LocateRequester asks a user's connected device for a position fix.
type LocateRequester interface {
	RequestLocation(userID string, opts geolocation.PositionOptions)
}

// FixReport is what a device publishes in reply to a locate request.
type FixReport struct {
	Lat   float64   `json:"lat"`
	Lng   float64   `json:"lng"`
	Error string    `json:"error,omitempty"`
	At    time.Time `json:"at"`
}

// DeviceLocationProvider implements geolocation.Provider against devices
// connected over socket.io. Redis carries the state and replies, so the
// socket holding the device and the request waiting on it may live on
// different instances.
type DeviceLocationProvider struct {
	Requester LocateRequester
}

func NewDeviceLocationProvider(r LocateRequester) *DeviceLocationProvider {
	return &DeviceLocationProvider{Requester: r}
}

func (p *DeviceLocationProvider) PermissionState(ctx context.Context, userID string) (geolocation.Permission, error) {
	val, err := db.RedisClient.HGet(ctx, UserGeoKeyPrefix+userID, "permission").Result()
	if errors.Is(err, redis.Nil) {
		return "", geolocation.ErrPermissionQueryUnsupported
	}
	if err != nil {
		return "", err
	}
	perm := geolocation.Permission(val)
	if !perm.Valid() {
		return "", geolocation.ErrPermissionQueryUnsupported
	}
	return perm, nil
}

func (p *DeviceLocationProvider) CurrentPosition(ctx context.Context, userID string, opts geolocation.PositionOptions) (models.Coordinate, error) {
	if opts.MaximumAge > 0 {
		if pos, at, ok, _ := LastKnownLocation(ctx, userID); ok && time.Since(at) <= opts.MaximumAge {
			return pos, nil
		}
	}
	if p.Requester == nil {
		return models.Coordinate{}, geolocation.ErrUnavailable
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	sub := db.RedisClient.Subscribe(ctx, GeoFixChannelPrefix+userID)
	defer sub.Close()
	// subscribe must be confirmed before the device is asked, or a fast reply is lost
	if _, err := sub.Receive(ctx); err != nil {
		return models.Coordinate{}, waitError(ctx, err)
	}

	requestedAt := time.Now()
	p.Requester.RequestLocation(userID, opts)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return models.Coordinate{}, waitError(ctx, ctx.Err())
		case msg, ok := <-ch:
			if !ok {
				return models.Coordinate{}, geolocation.ErrUnavailable
			}
			var report FixReport
			if err := json.Unmarshal([]byte(msg.Payload), &report); err != nil {
				continue
			}
			// maximumAge 0: anything fixed before this request is stale
			if report.At.Before(requestedAt) {
				continue
			}
			if report.Error != "" {
				return models.Coordinate{}, deviceError(report.Error)
			}
			return models.Coordinate{Lat: report.Lat, Lng: report.Lng}, nil
		}
	}
}

func (p *DeviceLocationProvider) WatchPermission(ctx context.Context, userID string, fn func(geolocation.Permission)) error {
	sub := db.RedisClient.Subscribe(ctx, GeoPermissionChanPrefix+userID)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			perm := geolocation.Permission(msg.Payload)
			if perm.Valid() {
				fn(perm)
			}
		}
	}
}

// ReportFix records a device fix and wakes any request waiting on it.
func ReportFix(ctx context.Context, userID string, pos models.Coordinate) error {
	now := time.Now()
	key := UserGeoKeyPrefix + userID
	_, err := db.RedisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"lat", strconv.FormatFloat(pos.Lat, 'f', -1, 64),
			"lng", strconv.FormatFloat(pos.Lng, 'f', -1, 64),
			"fixedAt", now.UnixMilli(),
		)
		pipe.Expire(ctx, key, userGeoTTL)
		return nil
	})
	if err != nil {
		return err
	}
	return publishFix(ctx, userID, FixReport{Lat: pos.Lat, Lng: pos.Lng, At: now})
}

// ReportFixError relays a device-side failure to the waiting request.
func ReportFixError(ctx context.Context, userID, kind string) error {
	return publishFix(ctx, userID, FixReport{Error: kind, At: time.Now()})
}

func SetPermission(ctx context.Context, userID string, perm geolocation.Permission) error {
	if !perm.Valid() {
		return fmt.Errorf("invalid permission state %q", perm)
	}
	key := UserGeoKeyPrefix + userID
	if err := db.RedisClient.HSet(ctx, key, "permission", string(perm)).Err(); err != nil {
		return err
	}
	db.RedisClient.Expire(ctx, key, userGeoTTL)
	return db.RedisClient.Publish(ctx, GeoPermissionChanPrefix+userID, string(perm)).Err()
}

// LastKnownLocation returns the most recent fix stored for the user.
func LastKnownLocation(ctx context.Context, userID string) (models.Coordinate, time.Time, bool, error) {
	vals, err := db.RedisClient.HMGet(ctx, UserGeoKeyPrefix+userID, "lat", "lng", "fixedAt").Result()
	if err != nil {
		return models.Coordinate{}, time.Time{}, false, err
	}
	latS, ok1 := vals[0].(string)
	lngS, ok2 := vals[1].(string)
	atS, ok3 := vals[2].(string)
	if !ok1 || !ok2 || !ok3 {
		return models.Coordinate{}, time.Time{}, false, nil
	}
	lat, err1 := strconv.ParseFloat(latS, 64)
	lng, err2 := strconv.ParseFloat(lngS, 64)
	ms, err3 := strconv.ParseInt(atS, 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return models.Coordinate{}, time.Time{}, false, nil
	}
	return models.Coordinate{Lat: lat, Lng: lng}, time.UnixMilli(ms), true, nil
}

func publishFix(ctx context.Context, userID string, report FixReport) error {
	val, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return db.RedisClient.Publish(ctx, GeoFixChannelPrefix+userID, val).Err()
}

func deviceError(kind string) error {
	switch kind {
	case DeviceErrPermissionDenied:
		return geolocation.ErrPermissionDenied
	case DeviceErrTimeout:
		return geolocation.ErrTimeout
	default:
		return geolocation.ErrUnavailable
	}
}

func waitError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return geolocation.ErrTimeout
	}
	return fmt.Errorf("%w: %v", geolocation.ErrUnavailable, err)
}
