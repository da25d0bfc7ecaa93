package jsonreplay

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"HandSync/internal/model"
)

const (
	ranks = "23456789TJQKA"
	suits = "cdhs"
)

// normalizeCard 牌面统一为 "Th" 形式；"10h" 也接受
func normalizeCard(tok string) (string, error) {
	s := strings.TrimSpace(tok)
	if len(s) == 3 && strings.HasPrefix(s, "10") {
		s = "T" + s[2:]
	}
	if len(s) != 2 {
		return "", model.ErrMalformedCard
	}
	rank := strings.ToUpper(s[:1])
	suit := strings.ToLower(s[1:])
	if !strings.Contains(ranks, rank) || !strings.Contains(suits, suit) {
		return "", model.ErrMalformedCard
	}
	return rank + suit, nil
}

// normalizeCards 逐张校验；空列表返回 nil
func normalizeCards(tokens []string) ([]string, string, error) {
	if len(tokens) == 0 {
		return nil, "", nil
	}
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		c, err := normalizeCard(t)
		if err != nil {
			return nil, t, err
		}
		out = append(out, c)
	}
	return out, "", nil
}

var categoryPatterns = []struct {
	re       *regexp.Regexp
	category model.HandCategory
}{
	{regexp.MustCompile(`\b(royal|straight)\s+flush\b`), model.CategoryStraightFlush},
	{regexp.MustCompile(`\b(four of a kind|quads)\b`), model.CategoryFourOfAKind},
	{regexp.MustCompile(`\bfull\s*house\b`), model.CategoryFullHouse},
	{regexp.MustCompile(`\bflush\b`), model.CategoryFlush},
	{regexp.MustCompile(`\bstraight\b`), model.CategoryStraight},
	{regexp.MustCompile(`\b(three of a kind|trips|set)\b`), model.CategoryThreeOfAKind},
	{regexp.MustCompile(`\b(two pairs?)\b`), model.CategoryTwoPair},
	{regexp.MustCompile(`\bpair\b`), model.CategoryPair},
	{regexp.MustCompile(`\bhigh\b`), model.CategoryHighCard},
}

// categoryFromDescription 按描述关键字判断牌型
func categoryFromDescription(desc string) (model.HandCategory, bool) {
	d := strings.ToLower(desc)
	for _, p := range categoryPatterns {
		if p.re.MatchString(d) {
			return p.category, true
		}
	}
	return "", false
}

// categoryFromCombination 由五张已规范化的牌计算牌型
func categoryFromCombination(cards []string) (model.HandCategory, bool) {
	if len(cards) != 5 {
		return "", false
	}
	counts := make(map[int]int, 5)
	flush := true
	values := make([]int, 0, 5)
	for i, c := range cards {
		v := strings.IndexByte(ranks, c[0])
		if v < 0 {
			return "", false
		}
		if counts[v] == 0 {
			values = append(values, v)
		}
		counts[v]++
		if i > 0 && c[1] != cards[0][1] {
			flush = false
		}
	}
	sort.Ints(values)

	straight := false
	if len(values) == 5 {
		straight = values[4]-values[0] == 4 ||
			// A2345
			(values[4] == len(ranks)-1 && values[0] == 0 && values[3] == 3)
	}

	groups := make([]int, 0, len(counts))
	for _, n := range counts {
		groups = append(groups, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(groups)))

	switch {
	case straight && flush:
		return model.CategoryStraightFlush, true
	case groups[0] == 4:
		return model.CategoryFourOfAKind, true
	case groups[0] == 3 && groups[1] == 2:
		return model.CategoryFullHouse, true
	case flush:
		return model.CategoryFlush, true
	case straight:
		return model.CategoryStraight, true
	case groups[0] == 3:
		return model.CategoryThreeOfAKind, true
	case groups[0] == 2 && groups[1] == 2:
		return model.CategoryTwoPair, true
	case groups[0] == 2:
		return model.CategoryPair, true
	}
	return model.CategoryHighCard, true
}

// classifyResult 描述优先，其次五张组合，都没有视为未摊牌
func classifyResult(desc *string, combination []string) model.HandCategory {
	if desc != nil {
		if c, ok := categoryFromDescription(*desc); ok {
			return c
		}
	}
	if c, ok := categoryFromCombination(combination); ok {
		return c
	}
	return model.CategoryUncontested
}

func streetFromTurn(turn int) (model.Street, error) {
	switch turn {
	case 1:
		return model.StreetFlop, nil
	case 2:
		return model.StreetTurn, nil
	case 3:
		return model.StreetRiver, nil
	}
	return "", fmt.Errorf("未知街道 turn=%d", turn)
}
