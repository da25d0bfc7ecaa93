package jsonreplay

import (
	"testing"

	"HandSync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCard(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Th", "Th", true},
		{"th", "Th", true},
		{"10H", "Th", true},
		{"as", "As", true},
		{"2C", "2c", true},
		{"1h", "", false},
		{"Ax", "", false},
		{"", "", false},
		{"AhK", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := normalizeCard(tt.in)
			if !tt.ok {
				assert.ErrorIs(t, err, model.ErrMalformedCard)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCategoryFromDescription(t *testing.T) {
	tests := map[string]model.HandCategory{
		"Royal Flush":            model.CategoryStraightFlush,
		"Straight Flush, 9 high": model.CategoryStraightFlush,
		"Four of a Kind, Jacks":  model.CategoryFourOfAKind,
		"Full House, 3s full":    model.CategoryFullHouse,
		"Flush, Ace high":        model.CategoryFlush,
		"Straight, Ten high":     model.CategoryStraight,
		"Three of a Kind, 7s":    model.CategoryThreeOfAKind,
		"Two Pair, Kings and 4s": model.CategoryTwoPair,
		"Pair of Aces":           model.CategoryPair,
		"King High":              model.CategoryHighCard,
	}
	for desc, want := range tests {
		got, ok := categoryFromDescription(desc)
		require.True(t, ok, desc)
		assert.Equal(t, want, got, desc)
	}

	_, ok := categoryFromDescription("won without showdown")
	assert.False(t, ok)
}

func TestCategoryFromCombination(t *testing.T) {
	tests := []struct {
		cards []string
		want  model.HandCategory
	}{
		{[]string{"Ah", "Kh", "Qh", "Jh", "Th"}, model.CategoryStraightFlush},
		{[]string{"Ah", "2d", "3c", "4s", "5h"}, model.CategoryStraight},
		{[]string{"9c", "9d", "9h", "9s", "2c"}, model.CategoryFourOfAKind},
		{[]string{"9c", "9d", "9h", "2s", "2c"}, model.CategoryFullHouse},
		{[]string{"2h", "7h", "9h", "Jh", "Kh"}, model.CategoryFlush},
		{[]string{"9c", "9d", "9h", "2s", "3c"}, model.CategoryThreeOfAKind},
		{[]string{"9c", "9d", "2h", "2s", "3c"}, model.CategoryTwoPair},
		{[]string{"9c", "9d", "2h", "4s", "3c"}, model.CategoryPair},
		{[]string{"9c", "Td", "2h", "4s", "3c"}, model.CategoryHighCard},
	}
	for _, tt := range tests {
		got, ok := categoryFromCombination(tt.cards)
		require.True(t, ok)
		assert.Equal(t, tt.want, got, "%v", tt.cards)
	}

	_, ok := categoryFromCombination([]string{"Ah"})
	assert.False(t, ok)
}

func TestClassifyResult(t *testing.T) {
	desc := "Flush"
	assert.Equal(t, model.CategoryFlush, classifyResult(&desc, []string{"9c", "Td", "2h", "4s", "3c"}), "description wins")

	other := "split pot"
	assert.Equal(t, model.CategoryHighCard, classifyResult(&other, []string{"9c", "Td", "2h", "4s", "3c"}))
	assert.Equal(t, model.CategoryUncontested, classifyResult(nil, nil))
}
