package api

import (
	"context"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"league-tracker/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func newTestClient(t *testing.T, handler fasthttp.RequestHandler) *RiotClient {
	t.Helper()

	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	return &RiotClient{
		apiKey: "test-key",
		client: &fasthttp.Client{
			Dial: func(addr string) (net.Conn, error) { return ln.Dial() },
		},
		hostFormat: "http://%s.riot.test",
		maxRetries: 2,
		retryBase:  time.Millisecond,
		logger:     zerolog.Nop(),
		routing:    make(map[string]string),
		platform:   make(map[string]string),
	}
}

// region returns the subdomain the request was sent to.
func region(ctx *fasthttp.RequestCtx) string {
	host := string(ctx.Host())
	return strings.TrimSuffix(host, ".riot.test")
}

func TestGetAccountByRiotIDFallsThroughRegions(t *testing.T) {
	var seen []string
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		seen = append(seen, region(ctx))
		assert.Equal(t, "test-key", string(ctx.Request.Header.Peek("X-Riot-Token")))
		if region(ctx) != "europe" {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			ctx.SetBodyString(`{"status":{"message":"not found"}}`)
			return
		}
		assert.Contains(t, string(ctx.RequestURI()), "/by-riot-id/Some%20Name/EUW")
		ctx.SetBodyString(`{"puuid":"p1","gameName":"Some Name","tagLine":"EUW"}`)
	})

	acc, err := c.GetAccountByRiotID(context.Background(), "Some Name", "EUW")
	require.NoError(t, err)
	assert.Equal(t, "p1", acc.PUUID)
	assert.Equal(t, []string{"americas", "europe"}, seen)
	assert.Equal(t, []string{"europe", "americas", "asia"}, c.regionsFor("p1"))
}

func TestGetAccountByRiotIDNotFoundAnywhere(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	})

	_, err := c.GetAccountByRiotID(context.Background(), "Ghost", "NA1")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestGetAccountByPUUIDUsesRememberedRegion(t *testing.T) {
	var seen []string
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		seen = append(seen, region(ctx))
		assert.Contains(t, string(ctx.RequestURI()), "/accounts/by-puuid/p1")
		ctx.SetBodyString(`{"puuid":"p1","gameName":"Renamed","tagLine":"ASIA"}`)
	})
	c.remember("p1", "asia", "")

	acc, err := c.GetAccountByPUUID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", acc.GameName)
	assert.Equal(t, []string{"asia"}, seen)
}

func TestGetPlatform(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"json string", `"NA1"`},
		{"object", `{"puuid":"p1","game":"lol","region":"NA1"}`},
		{"plain text", "na1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
				calls.Add(1)
				ctx.SetBodyString(tt.body)
			})

			p, err := c.GetPlatform(context.Background(), "p1")
			require.NoError(t, err)
			assert.Equal(t, "na1", p)

			p, err = c.GetPlatform(context.Background(), "p1")
			require.NoError(t, err)
			assert.Equal(t, "na1", p)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestRetriesThrottledRequests(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		if calls.Add(1) == 1 {
			ctx.Response.Header.Set("Retry-After", "0")
			ctx.Response.Header.Set("X-App-Rate-Limit", "20:1,100:120")
			ctx.SetStatusCode(fasthttp.StatusTooManyRequests)
			return
		}
		ctx.SetBodyString(`["NA1_2","NA1_1"]`)
	})
	c.remember("p1", "americas", "")

	ids, err := c.GetMatchIDs(context.Background(), "p1", 0, 25, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"NA1_2", "NA1_1"}, ids)
	assert.Equal(t, int32(2), calls.Load())

	info := c.GetRateLimitInfo()
	assert.Equal(t, 1, info.Throttled)
	assert.Equal(t, "20:1,100:120", info.AppLimit)
}

func TestRetryGivesUp(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		ctx.SetStatusCode(fasthttp.StatusTooManyRequests)
	})
	c.remember("p1", "", "na1")

	_, err := c.GetSummoner(context.Background(), "p1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, fasthttp.StatusTooManyRequests, apiErr.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		ctx.SetStatusCode(fasthttp.StatusForbidden)
	})
	c.remember("p1", "", "na1")

	_, err := c.GetSummoner(context.Background(), "p1")
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetMatchIDsQuery(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		args := ctx.QueryArgs()
		assert.Equal(t, "100", string(args.Peek("start")))
		assert.Equal(t, "100", string(args.Peek("count")))
		assert.Equal(t, "440", string(args.Peek("queue")))
		ctx.SetBodyString(`[]`)
	})

	ids, err := c.GetMatchIDs(context.Background(), "p1", 100, 100, domain.QueueRankedFlex)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestGetLeagueEntries(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		assert.Equal(t, "na1", region(ctx))
		assert.Equal(t, "/lol/league/v4/entries/by-puuid/p1", string(ctx.Path()))
		ctx.SetBodyString(`[{"queueType":"RANKED_SOLO_5x5","tier":"GOLD","rank":"II","leaguePoints":40,"wins":10,"losses":8}]`)
	})
	c.remember("p1", "americas", "na1")

	entries, err := c.GetLeagueEntries(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.RankEntry{QueueType: "RANKED_SOLO_5x5", Tier: "GOLD", Division: "II", LeaguePoints: 40, Wins: 10, Losses: 8}, entries[0])
}

const matchPayload = `{
  "metadata": {"matchId": "NA1_42", "participants": ["p1"]},
  "info": {
    "gameCreation": 1768900000000,
    "gameStartTimestamp": 1768900060000,
    "gameEndTimestamp": 1768901860000,
    "gameDuration": 1800,
    "queueId": 420,
    "participants": [{
      "puuid": "p1", "riotIdGameName": "Faker", "riotIdTagline": "KR1",
      "championName": "Ahri", "teamId": 100, "win": true,
      "kills": 7, "deaths": 2, "assists": 9,
      "totalDamageDealtToChampions": 24000, "totalHeal": 3000, "bonusArmor": 40,
      "visionScore": 22, "timePlayed": 1790, "teamPosition": "MIDDLE",
      "turretTakedowns": 3, "inhibitorTakedowns": 1,
      "challenges": {"dragonTakedowns": 2, "baronTakedowns": 1, "riftHeraldTakedowns": 1}
    }]
  }
}`

func TestGetMatch(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(matchPayload)
	})

	m, err := c.GetMatch(context.Background(), "NA1_42")
	require.NoError(t, err)
	assert.Equal(t, "NA1_42", m.ID)
	assert.Equal(t, domain.QueueRankedSolo, m.QueueID)
	assert.Equal(t, 1800, m.DurationSec)
	require.Len(t, m.Participants, 1)

	p := m.Participants[0]
	assert.Equal(t, "Faker", p.RiotIDName)
	assert.Equal(t, 40, p.Armor)
	assert.Equal(t, 1790, p.TimePlayedSec)
	assert.Equal(t, 8, p.Objectives())
}

func TestMatchDurationInMillisecondsWithoutEndTimestamp(t *testing.T) {
	var dto MatchDTO
	dto.Info.GameDuration = 1_500_000
	assert.Equal(t, 1500, dto.ToDomain().DurationSec)
}

func TestGetActiveGame(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		if strings.HasSuffix(string(ctx.Path()), "/p2") {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			return
		}
		ctx.SetBodyString(`{"gameId":99,"gameQueueConfigId":440,"gameLength":615,"participants":[{"puuid":"p1","teamId":200}]}`)
	})
	c.remember("p1", "", "na1")
	c.remember("p2", "", "na1")

	game, err := c.GetActiveGame(context.Background(), "p1")
	require.NoError(t, err)
	require.NotNil(t, game)
	assert.Equal(t, int64(99), game.GameID)
	assert.Equal(t, 200, game.TeamOf("p1"))
	assert.Equal(t, 0, game.TeamOf("p9"))

	idle, err := c.GetActiveGame(context.Background(), "p2")
	require.NoError(t, err)
	assert.Nil(t, idle)
}
