package service

import (
	"context"
	"sort"
	"time"

	"league-tracker/internal/constants"
	"league-tracker/internal/domain"
	"league-tracker/internal/mmr"
	"league-tracker/internal/repository"
	"league-tracker/internal/stats"
	"league-tracker/internal/window"

	"github.com/rs/zerolog"
)

type RecordRow struct {
	RiotID   string               `json:"riot_id"`
	PUUID    string               `json:"puuid"`
	Solo     stats.Summary        `json:"solo"`
	Flex     stats.Summary        `json:"flex"`
	ARAM     stats.Summary        `json:"aram"`
	Total    stats.Summary        `json:"total"`
	WinRate  float64              `json:"win_rate"`
	MMRDelta map[domain.Queue]int `json:"mmr_delta"`
}

type RecordTotals struct {
	Solo stats.Summary `json:"solo"`
	Flex stats.Summary `json:"flex"`
	ARAM stats.Summary `json:"aram"`
	All  stats.Summary `json:"all"`
}

type RecordsTable struct {
	Mode       window.Mode   `json:"mode"`
	Window     window.Window `json:"window"`
	Rows       []RecordRow   `json:"rows"`
	Totals     RecordTotals  `json:"totals"`
	LastUpdate *time.Time    `json:"last_update,omitempty"`
}

// RecordsService builds the per-player W/L table for a daily, weekly or
// season window.
type RecordsService struct {
	players *repository.PlayerRepository
	matches *repository.MatchRepository
	history *repository.MMRHistoryRepository
	state   *repository.AppStateRepository
	windows *window.Calculator
	logger  zerolog.Logger
	now     func() time.Time
}

func NewRecordsService(
	players *repository.PlayerRepository,
	matches *repository.MatchRepository,
	history *repository.MMRHistoryRepository,
	state *repository.AppStateRepository,
	windows *window.Calculator,
	logger zerolog.Logger,
) *RecordsService {
	return &RecordsService{
		players: players,
		matches: matches,
		history: history,
		state:   state,
		windows: windows,
		logger:  logger,
		now:     time.Now,
	}
}

// Table returns rows sorted by games played, most first.
func (s *RecordsService) Table(ctx context.Context, mode window.Mode) (*RecordsTable, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	w, err := s.windows.For(mode, s.now())
	if err != nil {
		return nil, err
	}

	players, err := s.players.List(ctx)
	if err != nil {
		return nil, err
	}

	table := &RecordsTable{Mode: mode, Window: w, Rows: make([]RecordRow, 0, len(players))}
	for _, p := range players {
		row, err := s.row(ctx, p, w)
		if err != nil {
			return nil, err
		}
		table.Rows = append(table.Rows, row)
	}

	sort.SliceStable(table.Rows, func(i, j int) bool {
		if table.Rows[i].Total.Games != table.Rows[j].Total.Games {
			return table.Rows[i].Total.Games > table.Rows[j].Total.Games
		}
		return table.Rows[i].RiotID < table.Rows[j].RiotID
	})

	var solo, flex, aram []stats.Summary
	for _, r := range table.Rows {
		solo = append(solo, r.Solo)
		flex = append(flex, r.Flex)
		aram = append(aram, r.ARAM)
	}
	table.Totals = RecordTotals{
		Solo: stats.Combine(solo...),
		Flex: stats.Combine(flex...),
		ARAM: stats.Combine(aram...),
	}
	table.Totals.All = stats.Combine(table.Totals.Solo, table.Totals.Flex, table.Totals.ARAM)

	if last, ok, err := s.state.GetTime(ctx, constants.AppStateLastUpdate); err != nil {
		s.logger.Warn().Err(err).Msg("failed to read last update time")
	} else if ok {
		table.LastUpdate = &last
	}
	return table, nil
}

func (s *RecordsService) row(ctx context.Context, p domain.Player, w window.Window) (RecordRow, error) {
	matches, err := s.matches.ForPlayer(ctx, p.PUUID)
	if err != nil {
		return RecordRow{}, err
	}
	records, err := s.history.Records(ctx, p.PUUID)
	if err != nil {
		return RecordRow{}, err
	}

	row := RecordRow{
		RiotID: p.RiotID,
		PUUID:  p.PUUID,
		Solo:   stats.Aggregate(matches, p.PUUID, stats.Queue(domain.QueueRankedSolo), &w),
		Flex:   stats.Aggregate(matches, p.PUUID, stats.Queue(domain.QueueRankedFlex), &w),
		ARAM:   stats.AggregateEach(matches, p.PUUID, stats.ARAM, &w),
		MMRDelta: map[domain.Queue]int{
			domain.QueueSolo: mmr.DeltaSince(records[domain.QueueSolo], w.Start),
			domain.QueueFlex: mmr.DeltaSince(records[domain.QueueFlex], w.Start),
		},
	}
	row.Total = stats.Combine(row.Solo, row.Flex, row.ARAM)
	row.WinRate = row.Total.WinRate()
	return row, nil
}
