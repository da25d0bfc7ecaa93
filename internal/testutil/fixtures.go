package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// 两手牌的标准场景：
//   - 第 1 手：A 加注 B 跟注，打到摊牌，A 以一对赢 50
//   - 第 2 手：B 翻前弃牌，没有公共牌
const twoHandTemplate = `{
  "gameId": %q,
  "generatedAt": "2024-03-01T22:00:00Z",
  "playerId": "p-a",
  "fromCache": false,
  "hands": [
    {
      "id": %q,
      "number": "1",
      "gameType": "th",
      "smallBlind": 5,
      "bigBlind": 10,
      "ante": 0,
      "dealerSeat": 1,
      "startedAt": %d,
      "playerNet": 50,
      "players": [
        {"id": "p-a", "name": "alice", "seat": 1, "stack": 1000, "hand": ["Ah", "Kd"], "netGain": 50, "show": true},
        {"id": "p-b", "name": "bob", "seat": 2, "stack": 1000, "hand": ["Qs", "Qc"], "endStack": 950, "show": true}
      ],
      "events": [
        {"at": %[3]d, "payload": {"type": 3, "seat": 1, "value": 5}},
        {"at": %[3]d, "payload": {"type": 2, "seat": 2, "value": 10}},
        {"at": %[3]d, "payload": {"type": 7, "seat": 1, "value": 50}},
        {"at": %[3]d, "payload": {"type": 0, "seat": 2, "value": 40}},
        {"at": %[3]d, "payload": {"type": 9, "turn": 1, "cards": ["Ac", "7d", "2s"]}},
        {"at": %[3]d, "payload": {"type": 0, "seat": 2}},
        {"at": %[3]d, "payload": {"type": 0, "seat": 1, "value": 0}},
        {"at": %[3]d, "payload": {"type": 9, "turn": 2, "cards": ["Ac", "7d", "2s", "9h"]}},
        {"at": %[3]d, "payload": {"type": "check", "seat": 2}},
        {"at": %[3]d, "payload": {"type": 0, "seat": 1}},
        {"at": %[3]d, "payload": {"type": 9, "turn": 3, "cards": ["3c"]}},
        {"at": %[3]d, "payload": {"type": 0, "seat": 2}},
        {"at": %[3]d, "payload": {"type": 0, "seat": 1}},
        {"at": %[3]d, "payload": {"type": 15}},
        {"at": %[3]d, "payload": {"type": 10, "seat": 1, "pot": 100, "value": 100, "cards": ["Ah", "Kd"], "handDescription": "Pair of Aces", "combination": ["Ah", "Ac", "Kd", "9h", "7d"], "runNumber": 1}}
      ]
    },
    {
      "id": %q,
      "number": 2,
      "gameType": "th",
      "smallBlind": 5,
      "bigBlind": 10,
      "dealerSeat": 2,
      "startedAt": %d,
      "playerNet": 5,
      "players": [
        {"id": "p-a", "name": "alice", "seat": 1, "stack": 1050, "netGain": 5},
        {"id": "p-b", "name": "bob", "seat": 2, "stack": 950, "netGain": -5}
      ],
      "events": [
        {"at": %[5]d, "payload": {"type": 3, "seat": 2, "value": 5}},
        {"at": %[5]d, "payload": {"type": 2, "seat": 1, "value": 10}},
        {"at": %[5]d, "payload": {"type": 11, "seat": 2}},
        {"at": %[5]d, "payload": {"type": 10, "seat": 1, "pot": 15, "value": 15}}
      ]
    }
  ]
}`

// 场景中各表的期望行数
const (
	TwoHandGames          = 1
	TwoHandHands          = 2
	TwoHandPlayers        = 2
	TwoHandHandPlayers    = 4
	TwoHandEvents         = 11 + 3
	TwoHandCommunityCards = 5
	TwoHandResults        = 2
)

// TwoHandStart 第 1 手开始时间（毫秒）
const TwoHandStart int64 = 1709330400000

// TwoHandReplay 返回标准两手牌场景的回放文档
func TwoHandReplay(gameID string) []byte {
	return TwoHandReplayAt(gameID, TwoHandStart)
}

// TwoHandReplayAt 同一场景，第 1 手从 startMillis 开始
func TwoHandReplayAt(gameID string, startMillis int64) []byte {
	return []byte(fmt.Sprintf(twoHandTemplate,
		gameID, gameID+"-h1", startMillis, gameID+"-h2", startMillis+60_000))
}

// WriteReplay 把回放写到 dir/name，返回路径
func WriteReplay(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}
