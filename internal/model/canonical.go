package model

// 增强层：人工维护的真实玩家身份及其别名映射

// CanonicalPlayer 真实玩家（id 由维护者指定，保持稳定）
type CanonicalPlayer struct {
	CanonicalID string `gorm:"column:canonical_id;primaryKey;type:varchar(64)"`
	DisplayName string `gorm:"column:display_name;type:varchar(128);not null"`
}

func (CanonicalPlayer) TableName() string { return "canonical_players" }

// PlayerMapping (原始玩家 id, 昵称) → 规范玩家
type PlayerMapping struct {
	RawPlayerID string `gorm:"column:raw_player_id;primaryKey;type:varchar(64)"`
	Nickname    string `gorm:"column:nickname;primaryKey;type:varchar(128)"`
	CanonicalID string `gorm:"column:canonical_id;type:varchar(64);not null;index:idx_player_mappings_canonical"`

	Canonical *CanonicalPlayer `gorm:"foreignKey:CanonicalID;references:CanonicalID;constraint:OnDelete:CASCADE"`
}

func (PlayerMapping) TableName() string { return "player_mappings" }
