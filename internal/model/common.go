package model

// ActionKind 牌局动作枚举（固定集合，未知动作一律报错）
type ActionKind string

const (
	ActionCheck      ActionKind = "check"
	ActionCall       ActionKind = "call"
	ActionBet        ActionKind = "bet"
	ActionRaise      ActionKind = "raise"
	ActionFold       ActionKind = "fold"
	ActionAllIn      ActionKind = "all_in"
	ActionSmallBlind ActionKind = "small_blind"
	ActionBigBlind   ActionKind = "big_blind"
	ActionShowCards  ActionKind = "show_cards"
	ActionShowdown   ActionKind = "showdown"
)

// ActionKinds 全部动作，按展示顺序
var ActionKinds = []ActionKind{
	ActionSmallBlind, ActionBigBlind, ActionCheck, ActionCall, ActionBet,
	ActionRaise, ActionAllIn, ActionFold, ActionShowCards, ActionShowdown,
}

// Valid 是否属于枚举
func (k ActionKind) Valid() bool {
	for _, v := range ActionKinds {
		if v == k {
			return true
		}
	}
	return false
}

// Street 公共牌街道
type Street string

const (
	StreetFlop  Street = "flop"
	StreetTurn  Street = "turn"
	StreetRiver Street = "river"
)

// BoardSize 该街道结束时公共牌总数
func (s Street) BoardSize() int {
	switch s {
	case StreetFlop:
		return 3
	case StreetTurn:
		return 4
	case StreetRiver:
		return 5
	}
	return 0
}

// HandCategory 成牌类型；uncontested 表示未摊牌直接赢下底池
type HandCategory string

const (
	CategoryUncontested   HandCategory = "uncontested"
	CategoryHighCard      HandCategory = "high_card"
	CategoryPair          HandCategory = "pair"
	CategoryTwoPair       HandCategory = "two_pair"
	CategoryThreeOfAKind  HandCategory = "three_of_a_kind"
	CategoryStraight      HandCategory = "straight"
	CategoryFlush         HandCategory = "flush"
	CategoryFullHouse     HandCategory = "full_house"
	CategoryFourOfAKind   HandCategory = "four_of_a_kind"
	CategoryStraightFlush HandCategory = "straight_flush"
)

// HandCategories 从弱到强
var HandCategories = []HandCategory{
	CategoryHighCard, CategoryPair, CategoryTwoPair, CategoryThreeOfAKind, CategoryStraight,
	CategoryFlush, CategoryFullHouse, CategoryFourOfAKind, CategoryStraightFlush,
}
