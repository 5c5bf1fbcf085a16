package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long a user has to change their icon and confirm
const DefaultTTL = 5 * time.Minute

// iconPoolSize is the number of starter profile icons the challenge
// draws from; every account owns all of them.
const iconPoolSize = 28

var (
	// ErrChallengeExpired covers both a timed-out challenge and an
	// unknown challenge id; neither leaves any state behind.
	ErrChallengeExpired = errors.New("verification challenge expired")
	// ErrIconMismatch means the profile icon has not been changed to
	// the expected one yet; the challenge stays open for a retry.
	ErrIconMismatch = errors.New("profile icon does not match")
)

// IconSource reads the current profile icon of an external account
type IconSource interface {
	ProfileIconID(ctx context.Context, puuid string) (int, error)
}

// Challenge is one pending icon-verification handshake. It binds a
// claimed account to the requesting user only once the user proves
// control by setting the bot-chosen icon.
type Challenge struct {
	ID           string
	UserID       string
	PUUID        string
	TFTPUUID     string
	SummonerName string
	TagLine      string
	IconID       int

	timer *time.Timer
}

// Manager tracks pending challenges in process. Each challenge is
// scoped to one (user, account, icon) triple; a second concurrent link
// attempt by the same user simply creates a second challenge, with the
// store's account cap as the backstop if both succeed.
type Manager struct {
	icons IconSource
	ttl   time.Duration

	mu      sync.Mutex
	pending map[string]*Challenge
}

// NewManager creates a challenge manager polling icons from source
func NewManager(icons IconSource, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		icons:   icons,
		ttl:     ttl,
		pending: make(map[string]*Challenge),
	}
}

// Issue creates a challenge with a random expected icon. When the
// challenge times out without a successful confirm it is discarded and
// expired is invoked once, so the caller can clean up its UI; no other
// state has been written at that point.
func (m *Manager) Issue(userID, puuid, tftPUUID, summonerName, tagLine string, expired func(Challenge)) *Challenge {
	ch := &Challenge{
		ID:           uuid.NewString(),
		UserID:       userID,
		PUUID:        puuid,
		TFTPUUID:     tftPUUID,
		SummonerName: summonerName,
		TagLine:      tagLine,
		IconID:       rand.Intn(iconPoolSize) + 1,
	}

	ch.timer = time.AfterFunc(m.ttl, func() {
		m.mu.Lock()
		_, live := m.pending[ch.ID]
		delete(m.pending, ch.ID)
		m.mu.Unlock()

		if live {
			slog.Info("Verification challenge expired", "userID", userID, "riotID", summonerName+"#"+tagLine)
			if expired != nil {
				expired(*ch)
			}
		}
	})

	m.mu.Lock()
	m.pending[ch.ID] = ch
	m.mu.Unlock()

	slog.Info("Verification challenge issued",
		"userID", userID, "riotID", summonerName+"#"+tagLine, "iconID", ch.IconID)
	return ch
}

// Confirm re-reads the account's profile icon and checks it against
// the challenge. On a match the challenge is consumed and returned; on
// a mismatch it stays open so the user can fix their icon and click
// confirm again within the window.
func (m *Manager) Confirm(ctx context.Context, challengeID, userID string) (*Challenge, error) {
	m.mu.Lock()
	ch, ok := m.pending[challengeID]
	m.mu.Unlock()

	if !ok || ch.UserID != userID {
		return nil, ErrChallengeExpired
	}

	iconID, err := m.icons.ProfileIconID(ctx, ch.PUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to check profile icon: %w", err)
	}

	if iconID != ch.IconID {
		slog.Debug("Icon mismatch on confirm", "userID", userID, "got", iconID, "want", ch.IconID)
		return nil, ErrIconMismatch
	}

	m.mu.Lock()
	delete(m.pending, challengeID)
	m.mu.Unlock()
	ch.timer.Stop()

	slog.Info("Verification challenge matched", "userID", userID, "riotID", ch.SummonerName+"#"+ch.TagLine)
	return ch, nil
}

// Close discards all pending challenges without firing expiry hooks
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ch := range m.pending {
		ch.timer.Stop()
		delete(m.pending, id)
	}
}
