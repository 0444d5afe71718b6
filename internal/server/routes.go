package server

import "net/http"

// Routes registers every endpoint on a fresh mux.
func Routes(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.Healthz)

	mux.HandleFunc("GET /v1/players", h.ListPlayers)
	mux.HandleFunc("POST /v1/players", h.AddPlayer)
	mux.HandleFunc("GET /v1/players/{riotID}/info", h.PlayerInfo)
	mux.HandleFunc("GET /v1/players/{riotID}/grief", h.PlayerGrief)
	mux.HandleFunc("GET /v1/players/{riotID}/queues", h.PlayerQueues)

	mux.HandleFunc("GET /v1/records/{mode}", h.Records)
	mux.HandleFunc("GET /v1/duos", h.Duos)
	mux.HandleFunc("GET /v1/stacks", h.Stacks)
	mux.HandleFunc("GET /v1/live", h.LiveGames)
	mux.HandleFunc("GET /v1/queues", h.PoolQueues)

	mux.HandleFunc("POST /v1/updates/incremental", h.RunIncremental)
	mux.HandleFunc("POST /v1/updates/season", h.RunSeason)
	mux.HandleFunc("POST /v1/updates/mmr", h.RunMMRRefresh)
	return mux
}
