package evaluator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"asset-tracking-backend/internal/store"
)

type fakeTracker struct {
	keepAliveCalls int
	evaluateCalls  int
	resetCalls     int
	keepAliveErr   error
	evaluateErr    error
	resetErr       error
}

func (f *fakeTracker) EvaluateDeviceKeepAlive(ctx context.Context, now time.Time) error {
	f.keepAliveCalls++
	return f.keepAliveErr
}

func (f *fakeTracker) Evaluate(ctx context.Context, now time.Time) error {
	f.evaluateCalls++
	return f.evaluateErr
}

func (f *fakeTracker) Reset(ctx context.Context) error {
	f.resetCalls++
	return f.resetErr
}

type fakeRepo struct {
	session     *store.Session
	sessionErr  error
	reaped      int64
	reapErr     error
	deleteCalls int
}

func (f *fakeRepo) CurrentSession(ctx context.Context) (*store.Session, error) {
	return f.session, f.sessionErr
}

func (f *fakeRepo) DeleteTelemetry(ctx context.Context) (int64, error) {
	f.deleteCalls++
	return f.reaped, f.reapErr
}

func Test_Tick(t *testing.T) {
	now := time.Date(2024, 5, 14, 10, 0, 0, 0, time.UTC)
	activeSession := &store.Session{Token: "token-1", CreatedAt: now.Add(-time.Minute)}

	cases := []struct {
		name             string
		tracker          *fakeTracker
		repo             *fakeRepo
		expectedReaps    int
		expectedResets   int
		expectedSensorEv int
	}{
		{
			name:             "active session evaluates without reaping",
			tracker:          &fakeTracker{},
			repo:             &fakeRepo{session: activeSession},
			expectedReaps:    0,
			expectedResets:   0,
			expectedSensorEv: 1,
		},
		{
			name:             "no session reaps telemetry and resets liveness",
			tracker:          &fakeTracker{},
			repo:             &fakeRepo{reaped: 42},
			expectedReaps:    1,
			expectedResets:   1,
			expectedSensorEv: 1,
		},
		{
			name:             "keep-alive failure abandons the tick",
			tracker:          &fakeTracker{keepAliveErr: errors.New("db down")},
			repo:             &fakeRepo{session: activeSession},
			expectedReaps:    0,
			expectedResets:   0,
			expectedSensorEv: 0,
		},
		{
			name:             "session lookup failure abandons the tick",
			tracker:          &fakeTracker{},
			repo:             &fakeRepo{sessionErr: errors.New("db down")},
			expectedReaps:    0,
			expectedResets:   0,
			expectedSensorEv: 0,
		},
		{
			name:             "reap failure abandons the tick before evaluation",
			tracker:          &fakeTracker{},
			repo:             &fakeRepo{reapErr: errors.New("db down")},
			expectedReaps:    1,
			expectedResets:   0,
			expectedSensorEv: 0,
		},
		{
			name:             "reset failure abandons the tick before evaluation",
			tracker:          &fakeTracker{resetErr: errors.New("db down")},
			repo:             &fakeRepo{},
			expectedReaps:    1,
			expectedResets:   1,
			expectedSensorEv: 0,
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			e := New(Config{
				Tracker: tt.tracker,
				Repo:    tt.repo,
				Now:     func() time.Time { return now },
			})

			e.Tick(context.Background())

			assert.Equal(t, 1, tt.tracker.keepAliveCalls)
			assert.Equal(t, tt.expectedReaps, tt.repo.deleteCalls)
			assert.Equal(t, tt.expectedResets, tt.tracker.resetCalls)
			assert.Equal(t, tt.expectedSensorEv, tt.tracker.evaluateCalls)
		})
	}
}

func Test_Run_StopsOnCancel(t *testing.T) {
	tracker := &fakeTracker{}
	repo := &fakeRepo{session: &store.Session{Token: "token-1"}}
	e := New(Config{Tracker: tracker, Repo: repo})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("evaluator did not stop after cancellation")
	}
}
