package api

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"league-tracker/internal/config"
	"league-tracker/internal/constants"
	"league-tracker/internal/domain"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"github.com/valyala/fasthttp"
)

const defaultHostFormat = "https://%s.api.riotgames.com"

// ErrNoRegion is reported when no routing region answered with a usable result.
var ErrNoRegion = errors.New("no routing region returned a result")

// routingRegions are tried in order when a player's routing region is unknown.
var routingRegions = []string{"americas", "europe", "asia"}

// APIError is a non-2xx answer from the Riot API.
type APIError struct {
	Status int
	URL    string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("riot api error: %d GET %s -> %s", e.Status, e.URL, e.Body)
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == fasthttp.StatusNotFound
}

type RiotClient struct {
	apiKey     string
	client     *fasthttp.Client
	hostFormat string
	maxRetries uint64
	retryBase  time.Duration
	logger     zerolog.Logger

	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo

	cacheMu  sync.RWMutex
	routing  map[string]string
	platform map[string]string
}

// RateLimitInfo mirrors the last seen X-App-Rate-Limit and X-Method-Rate-Limit
// headers, formatted "limit:seconds,limit:seconds".
type RateLimitInfo struct {
	AppLimit    string    `json:"app_limit"`
	AppCount    string    `json:"app_count"`
	MethodLimit string    `json:"method_limit"`
	MethodCount string    `json:"method_count"`
	RetryAfter  int       `json:"retry_after"`
	Throttled   int       `json:"throttled"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewRiotClient(cfg *config.Config, logger zerolog.Logger) *RiotClient {
	return &RiotClient{
		apiKey: cfg.RiotAPIKey,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		hostFormat: defaultHostFormat,
		maxRetries: constants.RiotMaxRetries,
		retryBase:  constants.RiotRetryBaseDelay,
		logger:     logger.With().Str("component", "riot").Logger(),
		rateLimit:  RateLimitInfo{UpdatedAt: time.Now()},
		routing:    make(map[string]string),
		platform:   make(map[string]string),
	}
}

func (c *RiotClient) GetRateLimitInfo() RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

func (c *RiotClient) updateRateLimit(resp *fasthttp.Response) {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	if v := string(resp.Header.Peek("X-App-Rate-Limit")); v != "" {
		c.rateLimit.AppLimit = v
	}
	if v := string(resp.Header.Peek("X-App-Rate-Limit-Count")); v != "" {
		c.rateLimit.AppCount = v
	}
	if v := string(resp.Header.Peek("X-Method-Rate-Limit")); v != "" {
		c.rateLimit.MethodLimit = v
	}
	if v := string(resp.Header.Peek("X-Method-Rate-Limit-Count")); v != "" {
		c.rateLimit.MethodCount = v
	}
	if resp.StatusCode() == fasthttp.StatusTooManyRequests {
		c.rateLimit.Throttled++
		c.rateLimit.RetryAfter = retryAfterSeconds(resp)
	}
	c.rateLimit.UpdatedAt = time.Now()
}

func retryAfterSeconds(resp *fasthttp.Response) int {
	v, err := strconv.Atoi(strings.TrimSpace(string(resp.Header.Peek("Retry-After"))))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func (c *RiotClient) host(region string) string {
	return fmt.Sprintf(c.hostFormat, region)
}

func (c *RiotClient) cachedRouting(puuid string) (string, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	r, ok := c.routing[puuid]
	return r, ok
}

func (c *RiotClient) cachedPlatform(puuid string) (string, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	p, ok := c.platform[puuid]
	return p, ok
}

func (c *RiotClient) remember(puuid, routing, platform string) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	if routing != "" {
		c.routing[puuid] = routing
	}
	if platform != "" {
		c.platform[puuid] = platform
	}
}

// regionsFor puts the cached routing region of puuid first.
func (c *RiotClient) regionsFor(puuid string) []string {
	known, ok := c.cachedRouting(puuid)
	if !ok {
		return routingRegions
	}
	regions := []string{known}
	for _, r := range routingRegions {
		if r != known {
			regions = append(regions, r)
		}
	}
	return regions
}

func (c *RiotClient) GetAccountByRiotID(ctx context.Context, gameName, tagLine string) (*AccountDTO, error) {
	lastErr := ErrNoRegion
	for _, routing := range routingRegions {
		u := fmt.Sprintf("%s/riot/account/v1/accounts/by-riot-id/%s/%s",
			c.host(routing), url.PathEscape(gameName), url.PathEscape(tagLine))
		acc, err := doRequest[AccountDTO](ctx, c, u)
		if err != nil {
			lastErr = err
			continue
		}
		if acc.PUUID == "" {
			continue
		}
		c.remember(acc.PUUID, routing, "")
		return acc, nil
	}
	return nil, errors.Wrapf(lastErr, "failed to resolve riot id %s#%s", gameName, tagLine)
}

func (c *RiotClient) GetAccountByPUUID(ctx context.Context, puuid string) (*AccountDTO, error) {
	lastErr := ErrNoRegion
	for _, routing := range c.regionsFor(puuid) {
		u := fmt.Sprintf("%s/riot/account/v1/accounts/by-puuid/%s", c.host(routing), puuid)
		acc, err := doRequest[AccountDTO](ctx, c, u)
		if err != nil {
			lastErr = err
			continue
		}
		if acc.PUUID != puuid {
			continue
		}
		c.remember(puuid, routing, "")
		return acc, nil
	}
	return nil, errors.Wrapf(lastErr, "failed to resolve account %s", puuid)
}

// GetPlatform returns the lowercase platform shard ("na1", "euw1") of puuid.
func (c *RiotClient) GetPlatform(ctx context.Context, puuid string) (string, error) {
	if p, ok := c.cachedPlatform(puuid); ok {
		return p, nil
	}

	lastErr := ErrNoRegion
	for _, routing := range c.regionsFor(puuid) {
		u := fmt.Sprintf("%s/riot/account/v1/region/by-game/lol/by-puuid/%s", c.host(routing), puuid)
		body, err := c.get(ctx, u)
		if err != nil {
			lastErr = err
			continue
		}
		platform, err := parsePlatform(body)
		if err != nil {
			lastErr = err
			continue
		}
		if platform == "" {
			continue
		}
		c.remember(puuid, routing, platform)
		return platform, nil
	}
	return "", errors.Wrapf(lastErr, "failed to determine platform for %s", puuid)
}

// parsePlatform accepts the documented object form as well as a bare JSON or
// plain string.
func parsePlatform(body []byte) (string, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '{' {
		var dto regionDTO
		if err := sonic.Unmarshal(body, &dto); err != nil {
			return "", errors.Wrap(err, "failed to decode region")
		}
		return strings.ToLower(dto.Region), nil
	}
	return strings.ToLower(strings.Trim(string(body), "\" \n")), nil
}

func (c *RiotClient) GetSummoner(ctx context.Context, puuid string) (*SummonerDTO, error) {
	platform, err := c.GetPlatform(ctx, puuid)
	if err != nil {
		return nil, err
	}
	return doRequest[SummonerDTO](ctx, c, fmt.Sprintf("%s/lol/summoner/v4/summoners/by-puuid/%s", c.host(platform), puuid))
}

func (c *RiotClient) GetLeagueEntries(ctx context.Context, puuid string) ([]domain.RankEntry, error) {
	platform, err := c.GetPlatform(ctx, puuid)
	if err != nil {
		return nil, err
	}
	entries, err := doRequest[[]domain.RankEntry](ctx, c, fmt.Sprintf("%s/lol/league/v4/entries/by-puuid/%s", c.host(platform), puuid))
	if err != nil {
		return nil, err
	}
	return *entries, nil
}

// GetMatchIDs lists match ids newest first. A zero queue means every queue.
func (c *RiotClient) GetMatchIDs(ctx context.Context, puuid string, start, count, queue int) ([]string, error) {
	query := fmt.Sprintf("start=%d&count=%d", start, count)
	if queue > 0 {
		query += fmt.Sprintf("&queue=%d", queue)
	}

	lastErr := ErrNoRegion
	for _, routing := range c.regionsFor(puuid) {
		u := fmt.Sprintf("%s/lol/match/v5/matches/by-puuid/%s/ids?%s", c.host(routing), puuid, query)
		ids, err := doRequest[[]string](ctx, c, u)
		if err != nil {
			lastErr = err
			continue
		}
		c.remember(puuid, routing, "")
		return *ids, nil
	}
	return nil, errors.Wrapf(lastErr, "failed to list matches for %s", puuid)
}

func (c *RiotClient) GetMatch(ctx context.Context, matchID string) (*domain.Match, error) {
	lastErr := ErrNoRegion
	for _, routing := range routingRegions {
		dto, err := doRequest[MatchDTO](ctx, c, fmt.Sprintf("%s/lol/match/v5/matches/%s", c.host(routing), matchID))
		if err != nil {
			lastErr = err
			continue
		}
		m := dto.ToDomain()
		return &m, nil
	}
	return nil, errors.Wrapf(lastErr, "failed to fetch match %s", matchID)
}

// GetActiveGame returns nil when the player is not in a game.
func (c *RiotClient) GetActiveGame(ctx context.Context, puuid string) (*ActiveGameDTO, error) {
	platform, err := c.GetPlatform(ctx, puuid)
	if err != nil {
		return nil, err
	}
	game, err := doRequest[ActiveGameDTO](ctx, c, fmt.Sprintf("%s/lol/spectator/v5/active-games/by-summoner/%s", c.host(platform), puuid))
	if IsNotFound(err) {
		return nil, nil
	}
	return game, err
}

// get performs a GET, retrying throttled and unavailable answers. A
// Retry-After header overrides the exponential delay.
func (c *RiotClient) get(ctx context.Context, u string) ([]byte, error) {
	var retryAfter time.Duration
	exp := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.retryBase))
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		next, stop := exp.Next()
		if stop {
			return 0, true
		}
		if retryAfter > 0 {
			next, retryAfter = retryAfter, 0
		}
		return next, false
	})

	var body []byte
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		b, status, wait, err := c.do(ctx, u)
		if err != nil {
			return err
		}
		switch {
		case status == fasthttp.StatusOK:
			body = b
			return nil
		case status == fasthttp.StatusTooManyRequests || status >= fasthttp.StatusInternalServerError:
			retryAfter = min(wait, constants.RiotMaxRetryWait)
			c.logger.Warn().Int("status", status).Dur("retry_after", retryAfter).Str("url", u).Msg("riot api retrying")
			return retry.RetryableError(&APIError{Status: status, URL: u, Body: string(b)})
		default:
			return &APIError{Status: status, URL: u, Body: string(b)}
		}
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *RiotClient) do(ctx context.Context, u string) ([]byte, int, time.Duration, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(u)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("X-Riot-Token", c.apiKey)

	deadline, ok := ctx.Deadline()
	if ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, 0, 0, errors.Wrapf(err, "request %s", u)
		}
	} else {
		if err := c.client.Do(req, resp); err != nil {
			return nil, 0, 0, errors.Wrapf(err, "request %s", u)
		}
	}

	c.updateRateLimit(resp)

	body := append([]byte(nil), resp.Body()...)
	return body, resp.StatusCode(), time.Duration(retryAfterSeconds(resp)) * time.Second, nil
}

func doRequest[T any](ctx context.Context, client *RiotClient, u string) (*T, error) {
	body, err := client.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var result T
	if err := sonic.Unmarshal(body, &result); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", u)
	}
	return &result, nil
}
