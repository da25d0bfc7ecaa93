package model

import (
	"time"

	"gorm.io/datatypes"
)

// 核心层：全部以自然键为主键，不使用自增代理键，保证重复入库幂等且与入库顺序无关

// Game 一场牌局（一个回放文件对应一场）
type Game struct {
	GameID      string     `gorm:"column:game_id;primaryKey;type:varchar(64)"`
	GeneratedAt *time.Time `gorm:"column:generated_at;type:timestamp"` // 回放导出时间，取最早
	RecordedBy  *string    `gorm:"column:recorded_by;type:varchar(64)"` // 导出者，多份时取字典序最小
	StartedAt   *time.Time `gorm:"column:started_at;type:timestamp"`   // 只会提前
	EndedAt     *time.Time `gorm:"column:ended_at;type:timestamp"`     // 只会推后

	// 所有导出都来自缓存时为 true
	FromCache bool `gorm:"column:from_cache;type:boolean;not null;default:false"`
}

// Hand 一手牌
type Hand struct {
	GameID     string     `gorm:"column:game_id;primaryKey;type:varchar(64)"`
	HandID     string     `gorm:"column:hand_id;primaryKey;type:varchar(64)"`
	HandNumber int        `gorm:"column:hand_number;type:int;not null"`
	GameType   string     `gorm:"column:game_type;type:varchar(32)"`
	SmallBlind int64      `gorm:"column:small_blind;type:bigint;not null"`
	BigBlind   int64      `gorm:"column:big_blind;type:bigint;not null"`
	Ante       int64      `gorm:"column:ante;type:bigint;not null;default:0"`
	DealerSeat int        `gorm:"column:dealer_seat;type:int;not null"`
	StartedAt  *time.Time `gorm:"column:started_at;type:timestamp"`

	// 导出者本人在这手牌的输赢，以及对应的导出者
	PlayerNet   *int64  `gorm:"column:player_net;type:bigint"`
	PlayerNetBy *string `gorm:"column:player_net_by;type:varchar(64)"`

	Game *Game `gorm:"foreignKey:GameID;references:GameID;constraint:OnDelete:CASCADE"`
}

// Player 原始玩家身份（平台分配的 id），昵称取最近一次出现
type Player struct {
	PlayerID   string     `gorm:"column:player_id;primaryKey;type:varchar(64)"`
	ScreenName string     `gorm:"column:screen_name;type:varchar(128);not null"`
	LastSeenAt *time.Time `gorm:"column:last_seen_at;type:timestamp"`
}

// HandPlayer 玩家在某手牌中的参与记录
type HandPlayer struct {
	GameID      string  `gorm:"column:game_id;primaryKey;type:varchar(64)"`
	HandID      string  `gorm:"column:hand_id;primaryKey;type:varchar(64)"`
	PlayerID    string  `gorm:"column:player_id;primaryKey;type:varchar(64)"`
	ScreenName  string  `gorm:"column:screen_name;type:varchar(128);not null"` // 本手牌时使用的昵称，身份解析按它匹配
	Seat        int     `gorm:"column:seat;type:int;not null"`
	Stack       int64   `gorm:"column:stack;type:bigint;not null"`
	HoleCards   *string `gorm:"column:hole_cards;type:varchar(32)"` // 未亮牌为 NULL
	ShowedCards bool    `gorm:"column:showed_cards;type:boolean;not null;default:false"`
	NetGain     int64   `gorm:"column:net_gain;type:bigint;not null"`

	Hand   *Hand   `gorm:"foreignKey:GameID,HandID;references:GameID,HandID;constraint:OnDelete:CASCADE"`
	Player *Player `gorm:"foreignKey:PlayerID;references:PlayerID"`
}

// Event 一手牌内的单个动作，Seq 从 0 连续递增
type Event struct {
	GameID  string     `gorm:"column:game_id;primaryKey;type:varchar(64)"`
	HandID  string     `gorm:"column:hand_id;primaryKey;type:varchar(64)"`
	Seq     int        `gorm:"column:seq;primaryKey;autoIncrement:false;type:int"`
	Action  ActionKind `gorm:"column:action;type:varchar(16);not null"`
	ActorID *string    `gorm:"column:actor_id;type:varchar(64)"` // 非玩家事件为 NULL
	Seat    *int       `gorm:"column:seat;type:int"`
	Amount  *int64     `gorm:"column:amount;type:bigint"`
	At      *time.Time `gorm:"column:at;type:timestamp"`

	Hand  *Hand   `gorm:"foreignKey:GameID,HandID;references:GameID,HandID;constraint:OnDelete:CASCADE"`
	Actor *Player `gorm:"foreignKey:ActorID;references:PlayerID"`
}

// CommunityCard 公共牌；Run 区分 run-it-twice 的多块牌面
type CommunityCard struct {
	GameID   string `gorm:"column:game_id;primaryKey;type:varchar(64)"`
	HandID   string `gorm:"column:hand_id;primaryKey;type:varchar(64)"`
	Run      int    `gorm:"column:run;primaryKey;autoIncrement:false;type:int"`
	Street   Street `gorm:"column:street;primaryKey;type:varchar(8)"`
	Position int    `gorm:"column:position;primaryKey;autoIncrement:false;type:int"`
	Card     string `gorm:"column:card;type:varchar(4);not null"`

	Hand *Hand `gorm:"foreignKey:GameID,HandID;references:GameID,HandID;constraint:OnDelete:CASCADE"`
}

// HandResult 结算记录；一手牌可有多条（边池、平分、多块牌面）
type HandResult struct {
	GameID      string         `gorm:"column:game_id;primaryKey;type:varchar(64)"`
	HandID      string         `gorm:"column:hand_id;primaryKey;type:varchar(64)"`
	ResultIndex int            `gorm:"column:result_index;primaryKey;autoIncrement:false;type:int"`
	PlayerID    string         `gorm:"column:player_id;type:varchar(64);not null"`
	Seat        int            `gorm:"column:seat;type:int;not null"`
	Pot         int64          `gorm:"column:pot;type:bigint;not null;default:0"`
	AmountWon   int64          `gorm:"column:amount_won;type:bigint;not null;default:0"`
	Description *string        `gorm:"column:description;type:varchar(128)"`
	Category    HandCategory   `gorm:"column:category;type:varchar(32);not null"`
	HoleCards   *string        `gorm:"column:hole_cards;type:varchar(32)"`
	Combination datatypes.JSON `gorm:"column:combination"` // 组成牌型的五张牌
	RunNumber   *string        `gorm:"column:run_number;type:varchar(8)"`
	HiLo        *string        `gorm:"column:hi_lo;type:varchar(8)"`

	Hand   *Hand   `gorm:"foreignKey:GameID,HandID;references:GameID,HandID;constraint:OnDelete:CASCADE"`
	Player *Player `gorm:"foreignKey:PlayerID;references:PlayerID"`
}

func (Game) TableName() string          { return "games" }
func (Hand) TableName() string          { return "hands" }
func (Player) TableName() string        { return "players" }
func (HandPlayer) TableName() string    { return "hand_players" }
func (Event) TableName() string         { return "events" }
func (CommunityCard) TableName() string { return "community_cards" }
func (HandResult) TableName() string    { return "hand_results" }
