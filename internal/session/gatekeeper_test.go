package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-tracking-backend/internal/store"
)

type fakeSessions struct {
	session *store.Session
	err     error
}

func (f fakeSessions) CurrentSession(ctx context.Context) (*store.Session, error) {
	return f.session, f.err
}

func Test_Admit(t *testing.T) {
	startedAt := time.Date(2024, 5, 14, 10, 0, 0, 0, time.UTC)
	sessionCreatedAt := startedAt.Add(5 * time.Minute)
	activeSession := &store.Session{
		Token:     "token-1",
		UserEmail: "user@example.com",
		CreatedAt: sessionCreatedAt,
		ExpiresAt: sessionCreatedAt.Add(time.Hour),
	}

	cases := []struct {
		name        string
		sessions    fakeSessions
		deviceID    string
		enqueued    time.Time
		expected    Decision
		expectedErr bool
	}{
		{
			name:     "admits event after session creation",
			sessions: fakeSessions{session: activeSession},
			deviceID: "tracker-1",
			enqueued: sessionCreatedAt.Add(time.Second),
			expected: Admit,
		},
		{
			name:     "drops event enqueued before process start",
			sessions: fakeSessions{session: activeSession},
			deviceID: "tracker-1",
			enqueued: startedAt.Add(-time.Millisecond),
			expected: DropBeforeStart,
		},
		{
			name:     "drops event when no session is active",
			sessions: fakeSessions{},
			deviceID: "tracker-1",
			enqueued: startedAt.Add(time.Minute),
			expected: DropNoSession,
		},
		{
			name:     "drops event enqueued before session creation",
			sessions: fakeSessions{session: activeSession},
			deviceID: "tracker-1",
			enqueued: sessionCreatedAt.Add(-time.Second),
			expected: DropBeforeSession,
		},
		{
			name:     "admits event enqueued exactly at session creation",
			sessions: fakeSessions{session: activeSession},
			deviceID: "tracker-1",
			enqueued: sessionCreatedAt,
			expected: Admit,
		},
		{
			name:     "drops event from unrecognized device",
			sessions: fakeSessions{session: activeSession},
			deviceID: "someone-elses-tracker",
			enqueued: sessionCreatedAt.Add(time.Second),
			expected: DropForeignDevice,
		},
		{
			name:        "session lookup failure",
			sessions:    fakeSessions{err: errors.New("db down")},
			deviceID:    "tracker-1",
			enqueued:    startedAt.Add(time.Minute),
			expected:    DropNoSession,
			expectedErr: true,
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			g := New(Config{
				Sessions:  tt.sessions,
				DeviceID:  "tracker-1",
				StartedAt: startedAt,
			})

			decision, sess, err := g.Admit(context.Background(), tt.deviceID, tt.enqueued)
			if tt.expectedErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, decision)
			if tt.expected == Admit {
				assert.Equal(t, activeSession, sess)
			} else {
				assert.Nil(t, sess)
			}
		})
	}
}
