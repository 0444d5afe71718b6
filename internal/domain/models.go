package domain

import (
	"time"
)

const (
	QueueRankedSolo = 420
	QueueRankedFlex = 440
	QueueARAM       = 450
	QueueARAMEvent  = 2400
)

const (
	TeamBlue = 100
	TeamRed  = 200
)

const PositionSupport = "UTILITY"

type Queue string

const (
	QueueSolo Queue = "solo"
	QueueFlex Queue = "flex"
)

type Match struct {
	ID             string        `json:"id"`
	QueueID        int           `json:"queue_id"`
	GameCreationMs int64         `json:"game_creation_ms,omitempty"`
	GameStartMs    int64         `json:"game_start_ms,omitempty"`
	GameEndMs      int64         `json:"game_end_ms,omitempty"`
	DurationSec    int           `json:"duration_sec"`
	Participants   []Participant `json:"participants"`
}

// StartTime falls back to creation and then end timestamps, matching how the
// match API fills these fields for older records.
func (m *Match) StartTime() (time.Time, bool) {
	for _, ms := range []int64{m.GameStartMs, m.GameCreationMs, m.GameEndMs} {
		if ms > 0 {
			return time.UnixMilli(ms), true
		}
	}
	return time.Time{}, false
}

func (m *Match) Participant(puuid string) (*Participant, bool) {
	for i := range m.Participants {
		if m.Participants[i].PUUID == puuid {
			return &m.Participants[i], true
		}
	}
	return nil, false
}

type Participant struct {
	PUUID              string `json:"puuid"`
	RiotIDName         string `json:"riot_id_name,omitempty"`
	RiotIDTag          string `json:"riot_id_tag,omitempty"`
	ChampionName       string `json:"champion_name,omitempty"`
	TeamID             int    `json:"team_id"`
	Win                bool   `json:"win"`
	Kills              int    `json:"kills"`
	Deaths             int    `json:"deaths"`
	Assists            int    `json:"assists"`
	DamageToChampions  int    `json:"damage_to_champions"`
	TotalHeal          int    `json:"total_heal"`
	Armor              int    `json:"armor"`
	VisionScore        int    `json:"vision_score"`
	TimePlayedSec      int    `json:"time_played_sec"` // 0 = not reported
	Position           string `json:"position,omitempty"`
	Tier               string `json:"tier,omitempty"`
	LeaverPenalty      bool   `json:"leaver_penalty,omitempty"`
	AFK                bool   `json:"afk,omitempty"`
	DragonTakedowns    int    `json:"dragon_takedowns"`
	BaronTakedowns     int    `json:"baron_takedowns"`
	TurretTakedowns    int    `json:"turret_takedowns"`
	InhibitorTakedowns int    `json:"inhibitor_takedowns"`
	HeraldTakedowns    int    `json:"herald_takedowns"`
}

func (p *Participant) Objectives() int {
	return p.DragonTakedowns + p.BaronTakedowns + p.TurretTakedowns + p.InhibitorTakedowns + p.HeraldTakedowns
}

// PlayedSec returns the time played, substituting the full game duration when
// the source did not report it.
func (p *Participant) PlayedSec(durationSec int) int {
	if p.TimePlayedSec <= 0 {
		return durationSec
	}
	return p.TimePlayedSec
}

type Player struct {
	PUUID      string               `json:"puuid"`
	RiotID     string               `json:"riot_id"`
	GameName   string               `json:"game_name"`
	TagLine    string               `json:"tag_line"`
	SummonerID string               `json:"summoner_id,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
	MMR        map[Queue]*MMRRecord `json:"mmr,omitempty"`
}

type MMRPoint struct {
	At     time.Time `json:"at"`
	Rating int       `json:"rating"`
}

type MMRRecord struct {
	Current *int       `json:"current"`
	History []MMRPoint `json:"history"`
}

type RankEntry struct {
	QueueType    string `json:"queueType"`
	Tier         string `json:"tier"`
	Division     string `json:"rank"`
	LeaguePoints int    `json:"leaguePoints"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
}
