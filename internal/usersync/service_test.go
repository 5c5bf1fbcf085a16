package usersync

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/p-estor/ranksync-bot/internal/rank"
	"github.com/p-estor/ranksync-bot/internal/roles"
	"github.com/p-estor/ranksync-bot/internal/storage"
)

const testBindingsYAML = `
ladders:
  soloq:
    GOLD: "role-soloq-gold"
    DIAMOND: "role-soloq-diamond"
    UNRANKED: "role-soloq-unranked"
  flex:
    GOLD: "role-flex-gold"
    UNRANKED: "role-flex-unranked"
  tft:
    DIAMOND: "role-tft-diamond"
    UNRANKED: "role-tft-unranked"
  doubleup:
    UNRANKED: "role-doubleup-unranked"
`

// fakeFetcher serves canned tier results per puuid
type fakeFetcher struct {
	tiers map[string]map[rank.Ladder]rank.TierResult
	err   error
}

func (f *fakeFetcher) FetchTiers(ctx context.Context, puuid, tftPUUID string) (map[rank.Ladder]rank.TierResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if tiers, ok := f.tiers[puuid]; ok {
		return tiers, nil
	}
	return map[rank.Ladder]rank.TierResult{
		rank.SoloQueue: rank.Ranked(rank.TierUnranked),
		rank.FlexQueue: rank.Ranked(rank.TierUnranked),
		rank.TFT:       rank.Ranked(rank.TierUnranked),
		rank.DoubleUp:  rank.Ranked(rank.TierUnranked),
	}, nil
}

// fakeGateway tracks one member's roles in memory
type fakeGateway struct {
	held map[string]bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{held: make(map[string]bool)}
}

func (g *fakeGateway) MemberRoles(ctx context.Context, guildID, userID string) ([]string, error) {
	out := make([]string, 0, len(g.held))
	for id := range g.held {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (g *fakeGateway) AddRoles(ctx context.Context, guildID, userID string, roleIDs []string) error {
	for _, id := range roleIDs {
		g.held[id] = true
	}
	return nil
}

func (g *fakeGateway) RemoveRoles(ctx context.Context, guildID, userID string, roleIDs []string) error {
	for _, id := range roleIDs {
		delete(g.held, id)
	}
	return nil
}

func (g *fakeGateway) heldRoles() []string {
	out := make([]string, 0, len(g.held))
	for id := range g.held {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

type fixture struct {
	service *Service
	repo    *storage.Repository
	fetcher *fakeFetcher
	gateway *fakeGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	bindings, err := rank.ParseBindings([]byte(testBindingsYAML))
	require.NoError(t, err)

	fetcher := &fakeFetcher{tiers: make(map[string]map[rank.Ladder]rank.TierResult)}
	gateway := newFakeGateway()
	reconciler := roles.NewReconciler(gateway, bindings.ManagedRoles())

	return &fixture{
		service: NewService(repo, fetcher, bindings, reconciler),
		repo:    repo,
		fetcher: fetcher,
		gateway: gateway,
	}
}

func rankedTiers(soloq, flex, tft, doubleup string) map[rank.Ladder]rank.TierResult {
	return map[rank.Ladder]rank.TierResult{
		rank.SoloQueue: rank.Ranked(soloq),
		rank.FlexQueue: rank.Ranked(flex),
		rank.TFT:       rank.Ranked(tft),
		rank.DoubleUp:  rank.Ranked(doubleup),
	}
}

func TestLinkVerified_FirstAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.fetcher.tiers["puuid-1"] = rankedTiers("GOLD", "UNRANKED", "DIAMOND", "UNRANKED")

	account := &storage.LinkedAccount{
		UserID:       "u1",
		PUUID:        "puuid-1",
		TFTPUUID:     "tft-puuid-1",
		SummonerName: "Faker",
		TagLine:      "EUW",
	}

	result, err := f.service.LinkVerified(ctx, "g1", account)
	require.NoError(t, err)
	require.False(t, result.Partial)

	require.Len(t, result.Delta.Added, 4)
	require.Empty(t, result.Delta.Removed)
	require.Equal(t, []string{
		"role-doubleup-unranked",
		"role-flex-unranked",
		"role-soloq-gold",
		"role-tft-diamond",
	}, f.gateway.heldRoles())

	require.Equal(t, []string{
		"GOLD (SoloQ)",
		"UNRANKED (Flex)",
		"DIAMOND (TFT)",
		"UNRANKED (Double Up)",
	}, result.Labels)

	stored, err := f.repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, "GOLD", stored[0].RankSoloQ)
	require.Equal(t, "DIAMOND", stored[0].RankTFT)
}

func TestLinkVerified_SecondAccountUnionsRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.fetcher.tiers["puuid-1"] = rankedTiers("GOLD", "UNRANKED", "UNRANKED", "UNRANKED")
	f.fetcher.tiers["puuid-2"] = rankedTiers("DIAMOND", "GOLD", "UNRANKED", "UNRANKED")

	_, err := f.service.LinkVerified(ctx, "g1", &storage.LinkedAccount{
		UserID: "u1", PUUID: "puuid-1", SummonerName: "Main", TagLine: "EUW",
	})
	require.NoError(t, err)

	result, err := f.service.LinkVerified(ctx, "g1", &storage.LinkedAccount{
		UserID: "u1", PUUID: "puuid-2", SummonerName: "Smurf", TagLine: "EUW",
	})
	require.NoError(t, err)

	// Both soloq tiers coexist; shared unranked roles stay deduplicated.
	require.Contains(t, f.gateway.heldRoles(), "role-soloq-gold")
	require.Contains(t, f.gateway.heldRoles(), "role-soloq-diamond")
	require.Contains(t, f.gateway.heldRoles(), "role-flex-gold")
	require.Len(t, result.Labels, 8)
}

func TestLinkVerified_FetchFailureStoresDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.fetcher.err = errors.New("service unavailable")

	result, err := f.service.LinkVerified(ctx, "g1", &storage.LinkedAccount{
		UserID: "u1", PUUID: "puuid-1", SummonerName: "Faker", TagLine: "EUW",
	})
	require.NoError(t, err)
	require.True(t, result.Partial)

	stored, err := f.repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, rank.TierUnranked, stored[0].RankSoloQ)

	// All four ladders contribute their unranked role.
	require.Len(t, f.gateway.heldRoles(), 4)
}

func TestLinkVerified_CapPropagates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, puuid := range []string{"p1", "p2", "p3"} {
		_, err := f.service.LinkVerified(ctx, "g1", &storage.LinkedAccount{
			UserID: "u1", PUUID: puuid, SummonerName: "Smurf", TagLine: "EUW",
		})
		require.NoError(t, err)
	}

	_, err := f.service.LinkVerified(ctx, "g1", &storage.LinkedAccount{
		UserID: "u1", PUUID: "p4", SummonerName: "OneTooMany", TagLine: "EUW",
	})
	require.ErrorIs(t, err, storage.ErrLimitExceeded)
}

func TestSyncUser_RefreshesTiersAndRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.fetcher.tiers["puuid-1"] = rankedTiers("GOLD", "UNRANKED", "UNRANKED", "UNRANKED")
	_, err := f.service.LinkVerified(ctx, "g1", &storage.LinkedAccount{
		UserID: "u1", PUUID: "puuid-1", SummonerName: "Faker", TagLine: "EUW",
	})
	require.NoError(t, err)
	require.Contains(t, f.gateway.heldRoles(), "role-soloq-gold")

	// The account climbs; the next sync swaps the soloq role.
	f.fetcher.tiers["puuid-1"] = rankedTiers("DIAMOND", "UNRANKED", "UNRANKED", "UNRANKED")

	result, err := f.service.SyncUser(ctx, "g1", "u1")
	require.NoError(t, err)
	require.False(t, result.Partial)
	require.Equal(t, []string{"role-soloq-diamond"}, result.Delta.Added)
	require.Equal(t, []string{"role-soloq-gold"}, result.Delta.Removed)

	stored, err := f.repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "DIAMOND", stored[0].RankSoloQ)
}

func TestSyncUser_NoAccounts(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.SyncUser(context.Background(), "g1", "u1")
	require.ErrorIs(t, err, ErrNoAccounts)
}

func TestSyncUser_UnavailableLadderKeepsStoredTier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.fetcher.tiers["puuid-1"] = rankedTiers("GOLD", "UNRANKED", "UNRANKED", "UNRANKED")
	_, err := f.service.LinkVerified(ctx, "g1", &storage.LinkedAccount{
		UserID: "u1", PUUID: "puuid-1", SummonerName: "Faker", TagLine: "EUW",
	})
	require.NoError(t, err)

	f.fetcher.tiers["puuid-1"] = map[rank.Ladder]rank.TierResult{
		rank.SoloQueue: rank.Unavailable(),
		rank.FlexQueue: rank.Ranked("UNRANKED"),
		rank.TFT:       rank.NotApplicable(),
		rank.DoubleUp:  rank.NotApplicable(),
	}

	result, err := f.service.SyncUser(ctx, "g1", "u1")
	require.NoError(t, err)
	require.True(t, result.Partial)

	// The stored GOLD tier still drives the role set.
	require.Contains(t, f.gateway.heldRoles(), "role-soloq-gold")

	stored, err := f.repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "GOLD", stored[0].RankSoloQ)
}

func TestUnlink_LastAccountStripsManagedRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.fetcher.tiers["puuid-1"] = rankedTiers("GOLD", "UNRANKED", "DIAMOND", "UNRANKED")
	_, err := f.service.LinkVerified(ctx, "g1", &storage.LinkedAccount{
		UserID: "u1", PUUID: "puuid-1", SummonerName: "Faker", TagLine: "EUW",
	})
	require.NoError(t, err)

	// An unmanaged role must survive the strip.
	f.gateway.held["member"] = true

	deleted, result, err := f.service.Unlink(ctx, "g1", "u1", "puuid-1")
	require.NoError(t, err)
	require.True(t, deleted)
	require.Empty(t, result.Delta.Added)
	require.Len(t, result.Delta.Removed, 4)
	require.Equal(t, []string{"member"}, f.gateway.heldRoles())

	stored, err := f.repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, stored)
}

func TestUnlink_RemainingAccountKeepsItsRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.fetcher.tiers["puuid-1"] = rankedTiers("GOLD", "UNRANKED", "UNRANKED", "UNRANKED")
	f.fetcher.tiers["puuid-2"] = rankedTiers("DIAMOND", "UNRANKED", "UNRANKED", "UNRANKED")

	for _, puuid := range []string{"puuid-1", "puuid-2"} {
		_, err := f.service.LinkVerified(ctx, "g1", &storage.LinkedAccount{
			UserID: "u1", PUUID: puuid, SummonerName: "Acc", TagLine: "EUW",
		})
		require.NoError(t, err)
	}

	deleted, result, err := f.service.Unlink(ctx, "g1", "u1", "puuid-2")
	require.NoError(t, err)
	require.True(t, deleted)
	require.Equal(t, []string{"role-soloq-diamond"}, result.Delta.Removed)
	require.Contains(t, f.gateway.heldRoles(), "role-soloq-gold")
}

func TestUnlink_UnknownAccount(t *testing.T) {
	f := newFixture(t)

	deleted, result, err := f.service.Unlink(context.Background(), "g1", "u1", "puuid-missing")
	require.NoError(t, err)
	require.False(t, deleted)
	require.Nil(t, result)
}
