package model

import "sort"

// MappingDocument 玩家映射 YAML 文档
type MappingDocument struct {
	CanonicalPlayers []MappingEntry `yaml:"canonical_players"`
}

type MappingEntry struct {
	ID      string         `yaml:"id"`
	Name    string         `yaml:"name"`
	Aliases []MappingAlias `yaml:"aliases"`
}

// MappingAlias 一个别名 = 原始玩家 id + 当时的昵称
type MappingAlias struct {
	ID       string `yaml:"id"`
	Nickname string `yaml:"nickname"`
}

// AliasKey 映射的自然键
type AliasKey struct {
	RawPlayerID string
	Nickname    string
}

// ResolvedMap 解析后的映射，创建后只读，可在多个调用间安全传递。
// nil 值表示"没有任何映射"，所有玩家都按原始身份统计。
type ResolvedMap struct {
	players map[string]CanonicalPlayer
	aliases map[AliasKey]string
	byRawID map[string]int
}

// NewResolvedMap 由已校验过的规范玩家与映射构造；映射引用的规范玩家必须存在
func NewResolvedMap(players []CanonicalPlayer, mappings []PlayerMapping) *ResolvedMap {
	rm := &ResolvedMap{
		players: make(map[string]CanonicalPlayer, len(players)),
		aliases: make(map[AliasKey]string, len(mappings)),
		byRawID: make(map[string]int),
	}
	for _, p := range players {
		rm.players[p.CanonicalID] = p
	}
	for _, m := range mappings {
		if _, ok := rm.players[m.CanonicalID]; !ok {
			continue
		}
		key := AliasKey{RawPlayerID: m.RawPlayerID, Nickname: m.Nickname}
		if _, dup := rm.aliases[key]; !dup {
			rm.byRawID[m.RawPlayerID]++
		}
		rm.aliases[key] = m.CanonicalID
	}
	return rm
}

// Resolve 按 (原始 id, 昵称) 精确查找规范玩家
func (rm *ResolvedMap) Resolve(rawPlayerID, nickname string) (CanonicalPlayer, bool) {
	if rm == nil {
		return CanonicalPlayer{}, false
	}
	id, ok := rm.aliases[AliasKey{RawPlayerID: rawPlayerID, Nickname: nickname}]
	if !ok {
		return CanonicalPlayer{}, false
	}
	return rm.players[id], true
}

// Canonical 按规范 id 查找
func (rm *ResolvedMap) Canonical(canonicalID string) (CanonicalPlayer, bool) {
	if rm == nil {
		return CanonicalPlayer{}, false
	}
	p, ok := rm.players[canonicalID]
	return p, ok
}

// AliasesOf 反查某规范玩家的全部别名，按 (id, 昵称) 排序
func (rm *ResolvedMap) AliasesOf(canonicalID string) []AliasKey {
	if rm == nil {
		return nil
	}
	var out []AliasKey
	for k, id := range rm.aliases {
		if id == canonicalID {
			out = append(out, k)
		}
	}
	sortAliasKeys(out)
	return out
}

// HasRawPlayer 原始 id 是否出现在任一映射中
func (rm *ResolvedMap) HasRawPlayer(rawPlayerID string) bool {
	if rm == nil {
		return false
	}
	return rm.byRawID[rawPlayerID] > 0
}

// CanonicalPlayers 全部规范玩家，按 id 排序
func (rm *ResolvedMap) CanonicalPlayers() []CanonicalPlayer {
	if rm == nil {
		return nil
	}
	out := make([]CanonicalPlayer, 0, len(rm.players))
	for _, p := range rm.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CanonicalID < out[j].CanonicalID })
	return out
}

// Mappings 全部映射行，按自然键排序
func (rm *ResolvedMap) Mappings() []PlayerMapping {
	if rm == nil {
		return nil
	}
	keys := make([]AliasKey, 0, len(rm.aliases))
	for k := range rm.aliases {
		keys = append(keys, k)
	}
	sortAliasKeys(keys)
	out := make([]PlayerMapping, 0, len(keys))
	for _, k := range keys {
		out = append(out, PlayerMapping{RawPlayerID: k.RawPlayerID, Nickname: k.Nickname, CanonicalID: rm.aliases[k]})
	}
	return out
}

// Len 映射条数
func (rm *ResolvedMap) Len() int {
	if rm == nil {
		return 0
	}
	return len(rm.aliases)
}

func sortAliasKeys(keys []AliasKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].RawPlayerID != keys[j].RawPlayerID {
			return keys[i].RawPlayerID < keys[j].RawPlayerID
		}
		return keys[i].Nickname < keys[j].Nickname
	})
}
