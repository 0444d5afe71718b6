package constants

import "time"

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
	UpdateTimeout      = 30 * time.Minute
)

const (
	DBMaxOpenConns    = 1
	DBMaxIdleConns    = 1
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 100
)

const (
	ShutdownTimeout = 5 * time.Second
)

// Update pipeline
const (
	RecentMatchIDs    = 25
	SeasonPageSize    = 100
	UpdateCutoffSlack = 6 * time.Hour
	MMRRefreshWorkers = 4
	LiveLookupWorkers = 5
)

// Riot API client
const (
	RiotMaxRetries     = 3
	RiotRetryBaseDelay = 1 * time.Second
	RiotMaxRetryWait   = 30 * time.Second
)

// Presentation limits
const (
	RecentGamesForKDA   = 8
	ChampionSampleGames = 20
	TopChampions        = 5
	DefaultGriefGames   = 10
	MaxGriefGames       = 50
)

const AppStateLastUpdate = "last_update_utc"
