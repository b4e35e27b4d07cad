package geolocation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThalefangN/get-more-bw-87-sub000/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var cbd = models.Coordinate{Lat: -24.6282, Lng: 25.9231}

type mockProvider struct {
	mock.Mock
	permCh chan Permission
}

func (m *mockProvider) PermissionState(ctx context.Context, userID string) (Permission, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(Permission), args.Error(1)
}

func (m *mockProvider) CurrentPosition(ctx context.Context, userID string, opts PositionOptions) (models.Coordinate, error) {
	args := m.Called(ctx, userID, opts)
	return args.Get(0).(models.Coordinate), args.Error(1)
}

func (m *mockProvider) WatchPermission(ctx context.Context, userID string, fn func(Permission)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case p := <-m.permCh:
			fn(p)
		}
	}
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []models.Notice
}

func (r *recordingNotifier) Notify(_ context.Context, _ string, n models.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingNotifier) last() models.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notices[len(r.notices)-1]
}

func TestAcquire_GrantedReturnsFix(t *testing.T) {
	p := &mockProvider{}
	n := &recordingNotifier{}
	fix := models.Coordinate{Lat: -24.65, Lng: 25.91}
	p.On("PermissionState", mock.Anything, "u1").Return(PermissionGranted, nil)
	p.On("CurrentPosition", mock.Anything, "u1", DefaultPositionOptions).Return(fix, nil)

	got, err := NewLocator(p, n, cbd).Acquire(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, fix, got)
	assert.Equal(t, models.NoticeSuccess, n.last().Level)
	p.AssertExpectations(t)
}

func TestAcquire_RequestOptions(t *testing.T) {
	assert.True(t, DefaultPositionOptions.EnableHighAccuracy)
	assert.Equal(t, 10*time.Second, DefaultPositionOptions.Timeout)
	assert.Zero(t, DefaultPositionOptions.MaximumAge)
}

func TestAcquire_DeniedSkipsRequest(t *testing.T) {
	p := &mockProvider{}
	n := &recordingNotifier{}
	p.On("PermissionState", mock.Anything, "u1").Return(PermissionDenied, nil)

	_, err := NewLocator(p, n, cbd).Acquire(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrPermissionDenied)
	p.AssertNotCalled(t, "CurrentPosition", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, models.NoticeWarning, n.last().Level)
}

func TestAcquire_UnsupportedPermissionQueryStillRequests(t *testing.T) {
	p := &mockProvider{}
	fix := models.Coordinate{Lat: 1, Lng: 2}
	p.On("PermissionState", mock.Anything, "u1").Return(Permission(""), ErrPermissionQueryUnsupported)
	p.On("CurrentPosition", mock.Anything, "u1", mock.Anything).Return(fix, nil)

	got, err := NewLocator(p, nil, cbd).Acquire(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, fix, got)
}

func TestAcquireOrDefault_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name    string
		failure error
		want    error
	}{
		{"timeout", ErrTimeout, ErrTimeout},
		{"deadline", context.DeadlineExceeded, ErrTimeout},
		{"denied at prompt", ErrPermissionDenied, ErrPermissionDenied},
		{"other", errors.New("gps off"), ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockProvider{}
			n := &recordingNotifier{}
			p.On("PermissionState", mock.Anything, "u1").Return(PermissionPrompt, nil)
			p.On("CurrentPosition", mock.Anything, "u1", mock.Anything).Return(models.Coordinate{}, tt.failure)

			pos, live, err := NewLocator(p, n, cbd).AcquireOrDefault(context.Background(), "u1")
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, live)
			assert.Equal(t, cbd, pos)
			assert.Contains(t, n.last().Message, "default city location")
		})
	}
}

func TestWatch_ReacquiresWhenGranted(t *testing.T) {
	p := &mockProvider{permCh: make(chan Permission)}
	fix := models.Coordinate{Lat: -24.6, Lng: 25.9}
	p.On("PermissionState", mock.Anything, "u1").Return(PermissionGranted, nil)
	p.On("CurrentPosition", mock.Anything, "u1", mock.Anything).Return(fix, nil)

	ctx, cancel := context.WithCancel(context.Background())
	fixes := make(chan models.Coordinate, 1)
	done := make(chan error, 1)
	go func() {
		done <- NewLocator(p, nil, cbd).Watch(ctx, "u1", func(c models.Coordinate) { fixes <- c })
	}()

	p.permCh <- PermissionPrompt
	p.permCh <- PermissionGranted
	select {
	case got := <-fixes:
		assert.Equal(t, fix, got)
	case <-time.After(time.Second):
		t.Fatal("no fix after permission granted")
	}
	p.AssertNumberOfCalls(t, "CurrentPosition", 1)

	cancel()
	require.NoError(t, <-done)
}
