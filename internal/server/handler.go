package server

import (
	"net/http"
	"strconv"
	"time"

	"league-tracker/internal/constants"
	"league-tracker/internal/service"
	"league-tracker/internal/stats"
	"league-tracker/internal/window"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type Handler struct {
	players   *service.PlayerService
	updates   *service.UpdateService
	mmr       *service.MMRService
	records   *service.RecordsService
	analytics *service.AnalyticsService
	live      *service.LiveService
	logger    zerolog.Logger
	validator *validator.Validate
}

func NewHandler(
	players *service.PlayerService,
	updates *service.UpdateService,
	mmr *service.MMRService,
	records *service.RecordsService,
	analytics *service.AnalyticsService,
	live *service.LiveService,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		players:   players,
		updates:   updates,
		mmr:       mmr,
		records:   records,
		analytics: analytics,
		live:      live,
		logger:    logger,
		validator: validator.New(),
	}
}

type addPlayerRequest struct {
	RiotID string `json:"riot_id" validate:"required"`
}

// log prefers the request scoped logger set by the request id middleware.
func (h *Handler) log(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &h.logger
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if mapError(err).HTTPStatus >= http.StatusInternalServerError {
		h.log(r).Error().Err(err).Str("op", op).Msg("request failed")
	} else {
		h.log(r).Debug().Err(err).Str("op", op).Msg("request rejected")
	}
	writeError(w, err)
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.players.List(r.Context())
	if err != nil {
		h.fail(w, r, "list players", err)
		return
	}
	writeSuccess(w, http.StatusOK, players)
}

func (h *Handler) AddPlayer(w http.ResponseWriter, r *http.Request) {
	var req addPlayerRequest
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, "add player", errors.Wrap(errInvalidInput, "malformed JSON body"))
		return
	}
	if err := h.validator.StructCtx(r.Context(), req); err != nil {
		h.fail(w, r, "add player", err)
		return
	}

	player, err := h.players.AddPlayer(r.Context(), req.RiotID)
	if err != nil {
		h.fail(w, r, "add player", err)
		return
	}
	writeSuccess(w, http.StatusCreated, player)
}

func (h *Handler) PlayerInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.players.Info(r.Context(), r.PathValue("riotID"))
	if err != nil {
		h.fail(w, r, "player info", err)
		return
	}
	writeSuccess(w, http.StatusOK, info)
}

func (h *Handler) PlayerGrief(w http.ResponseWriter, r *http.Request) {
	games, err := intQuery(r, "games", constants.DefaultGriefGames, 1, constants.MaxGriefGames)
	if err != nil {
		h.fail(w, r, "grief", err)
		return
	}
	report, err := h.analytics.Grief(r.Context(), r.PathValue("riotID"), games)
	if err != nil {
		h.fail(w, r, "grief", err)
		return
	}
	writeSuccess(w, http.StatusOK, report)
}

func (h *Handler) PlayerQueues(w http.ResponseWriter, r *http.Request) {
	counts, err := h.analytics.PlayerQueues(r.Context(), r.PathValue("riotID"))
	if err != nil {
		h.fail(w, r, "player queues", err)
		return
	}
	writeSuccess(w, http.StatusOK, counts)
}

func (h *Handler) PoolQueues(w http.ResponseWriter, r *http.Request) {
	counts, err := h.analytics.PoolQueues(r.Context())
	if err != nil {
		h.fail(w, r, "pool queues", err)
		return
	}
	writeSuccess(w, http.StatusOK, counts)
}

func (h *Handler) Records(w http.ResponseWriter, r *http.Request) {
	table, err := h.records.Table(r.Context(), window.Mode(r.PathValue("mode")))
	if err != nil {
		h.fail(w, r, "records", err)
		return
	}
	writeSuccess(w, http.StatusOK, table)
}

func (h *Handler) Duos(w http.ResponseWriter, r *http.Request) {
	opts, err := rankOptions(r, stats.DefaultDuoOptions())
	if err != nil {
		h.fail(w, r, "duos", err)
		return
	}
	duos, err := h.analytics.Duos(r.Context(), opts)
	if err != nil {
		h.fail(w, r, "duos", err)
		return
	}
	writeSuccess(w, http.StatusOK, duos)
}

func (h *Handler) Stacks(w http.ResponseWriter, r *http.Request) {
	opts, err := rankOptions(r, stats.DefaultStackOptions(time.Time{}))
	if err != nil {
		h.fail(w, r, "stacks", err)
		return
	}
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.fail(w, r, "stacks", errors.Wrapf(errInvalidInput, "since %q is not RFC 3339", raw))
			return
		}
		opts.Since = since
	}
	report, err := h.analytics.Stacks(r.Context(), opts)
	if err != nil {
		h.fail(w, r, "stacks", err)
		return
	}
	writeSuccess(w, http.StatusOK, report)
}

func (h *Handler) LiveGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.live.Games(r.Context())
	if err != nil {
		h.fail(w, r, "live games", err)
		return
	}
	writeSuccess(w, http.StatusOK, games)
}

func (h *Handler) RunIncremental(w http.ResponseWriter, r *http.Request) {
	result, err := h.updates.Incremental(r.Context())
	if err != nil {
		h.fail(w, r, "incremental update", err)
		return
	}
	writeSuccess(w, http.StatusOK, result)
}

func (h *Handler) RunSeason(w http.ResponseWriter, r *http.Request) {
	result, err := h.updates.Season(r.Context())
	if err != nil {
		h.fail(w, r, "season update", err)
		return
	}
	writeSuccess(w, http.StatusOK, result)
}

func (h *Handler) RunMMRRefresh(w http.ResponseWriter, r *http.Request) {
	result, err := h.mmr.Refresh(r.Context())
	if err != nil {
		h.fail(w, r, "mmr refresh", err)
		return
	}
	writeSuccess(w, http.StatusOK, result)
}

func rankOptions(r *http.Request, opts stats.RankOptions) (stats.RankOptions, error) {
	var err error
	if opts.Top, err = intQuery(r, "top", opts.Top, 1, 50); err != nil {
		return opts, err
	}
	if opts.MinGames, err = intQuery(r, "min_games", opts.MinGames, 1, 1000); err != nil {
		return opts, err
	}
	return opts, nil
}

// intQuery reads an integer query parameter. Values above hi are clamped,
// values below lo are rejected.
func intQuery(r *http.Request, key string, def, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo {
		return 0, errors.Wrapf(errInvalidInput, "%s must be an integer >= %d", key, lo)
	}
	return min(n, hi), nil
}
