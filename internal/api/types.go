package api

import (
	"league-tracker/internal/domain"
)

type AccountDTO struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

type regionDTO struct {
	PUUID  string `json:"puuid"`
	Game   string `json:"game"`
	Region string `json:"region"`
}

type SummonerDTO struct {
	ID            string `json:"id"`
	PUUID         string `json:"puuid"`
	ProfileIconID int    `json:"profileIconId"`
	SummonerLevel int    `json:"summonerLevel"`
}

type MatchDTO struct {
	Metadata struct {
		MatchID      string   `json:"matchId"`
		Participants []string `json:"participants"`
	} `json:"metadata"`
	Info MatchInfoDTO `json:"info"`
}

type MatchInfoDTO struct {
	GameCreation       int64            `json:"gameCreation"`
	GameStartTimestamp int64            `json:"gameStartTimestamp"`
	GameEndTimestamp   int64            `json:"gameEndTimestamp"`
	GameDuration       int64            `json:"gameDuration"`
	QueueID            int              `json:"queueId"`
	Participants       []ParticipantDTO `json:"participants"`
}

type ParticipantDTO struct {
	PUUID                       string `json:"puuid"`
	RiotIDGameName              string `json:"riotIdGameName"`
	RiotIDTagline               string `json:"riotIdTagline"`
	SummonerName                string `json:"summonerName"`
	ChampionName                string `json:"championName"`
	TeamID                      int    `json:"teamId"`
	Win                         bool   `json:"win"`
	Kills                       int    `json:"kills"`
	Deaths                      int    `json:"deaths"`
	Assists                     int    `json:"assists"`
	TotalDamageDealtToChampions int    `json:"totalDamageDealtToChampions"`
	TotalHeal                   int    `json:"totalHeal"`
	Armor                       int    `json:"armor"`
	BonusArmor                  int    `json:"bonusArmor"`
	VisionScore                 int    `json:"visionScore"`
	TimePlayed                  int    `json:"timePlayed"`
	TeamPosition                string `json:"teamPosition"`
	LeaverPenalty               bool   `json:"leaverPenalty"`
	AFK                         bool   `json:"afk"`
	DragonTakedowns             int    `json:"dragonTakedowns"`
	BaronTakedowns              int    `json:"baronTakedowns"`
	TurretTakedowns             int    `json:"turretTakedowns"`
	InhibitorTakedowns          int    `json:"inhibitorTakedowns"`
	RiftHeraldTakedowns         int    `json:"riftHeraldTakedowns"`
	Challenges                  struct {
		DragonTakedowns     int `json:"dragonTakedowns"`
		BaronTakedowns      int `json:"baronTakedowns"`
		RiftHeraldTakedowns int `json:"riftHeraldTakedowns"`
	} `json:"challenges"`
}

// ToDomain converts a match-v5 payload. gameDuration is in seconds when
// gameEndTimestamp is present and in milliseconds otherwise.
func (m *MatchDTO) ToDomain() domain.Match {
	duration := m.Info.GameDuration
	if m.Info.GameEndTimestamp == 0 {
		duration /= 1000
	}

	match := domain.Match{
		ID:             m.Metadata.MatchID,
		QueueID:        m.Info.QueueID,
		GameCreationMs: m.Info.GameCreation,
		GameStartMs:    m.Info.GameStartTimestamp,
		GameEndMs:      m.Info.GameEndTimestamp,
		DurationSec:    int(duration),
		Participants:   make([]domain.Participant, 0, len(m.Info.Participants)),
	}
	for _, p := range m.Info.Participants {
		match.Participants = append(match.Participants, p.toDomain())
	}
	return match
}

func (p *ParticipantDTO) toDomain() domain.Participant {
	name := p.RiotIDGameName
	if name == "" {
		name = p.SummonerName
	}
	armor := p.Armor
	if armor == 0 {
		armor = p.BonusArmor
	}

	return domain.Participant{
		PUUID:              p.PUUID,
		RiotIDName:         name,
		RiotIDTag:          p.RiotIDTagline,
		ChampionName:       p.ChampionName,
		TeamID:             p.TeamID,
		Win:                p.Win,
		Kills:              p.Kills,
		Deaths:             p.Deaths,
		Assists:            p.Assists,
		DamageToChampions:  p.TotalDamageDealtToChampions,
		TotalHeal:          p.TotalHeal,
		Armor:              armor,
		VisionScore:        p.VisionScore,
		TimePlayedSec:      p.TimePlayed,
		Position:           p.TeamPosition,
		LeaverPenalty:      p.LeaverPenalty,
		AFK:                p.AFK,
		DragonTakedowns:    firstNonZero(p.DragonTakedowns, p.Challenges.DragonTakedowns),
		BaronTakedowns:     firstNonZero(p.BaronTakedowns, p.Challenges.BaronTakedowns),
		TurretTakedowns:    p.TurretTakedowns,
		InhibitorTakedowns: p.InhibitorTakedowns,
		HeraldTakedowns:    firstNonZero(p.RiftHeraldTakedowns, p.Challenges.RiftHeraldTakedowns),
	}
}

func firstNonZero(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}

// ActiveGameDTO is the spectator-v5 view of a game in progress.
type ActiveGameDTO struct {
	GameID            int64                  `json:"gameId"`
	GameQueueConfigID int                    `json:"gameQueueConfigId"`
	GameLength        int                    `json:"gameLength"`
	GameStartTime     int64                  `json:"gameStartTime"`
	Participants      []ActiveParticipantDTO `json:"participants"`
}

type ActiveParticipantDTO struct {
	PUUID      string `json:"puuid"`
	TeamID     int    `json:"teamId"`
	ChampionID int    `json:"championId"`
	RiotID     string `json:"riotId"`
}

// TeamOf returns the team puuid plays on, or 0 when it is not listed.
func (g *ActiveGameDTO) TeamOf(puuid string) int {
	for _, p := range g.Participants {
		if p.PUUID == puuid {
			return p.TeamID
		}
	}
	return 0
}
