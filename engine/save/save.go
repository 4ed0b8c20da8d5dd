// Package save implements the JSON form of player records and quest
// snapshots as they are stored by the persistence layer.
package save

import (
	"encoding/json"
	"fmt"

	"github.com/Elenyx/discordrpg/types"
)

// FormatVersion is written into every encoded player record.
const FormatVersion = 1

// SaveData is the JSON-serializable player record.
type SaveData struct {
	Format int          `json:"format"`
	Player types.Player `json:"player"`
}

// EncodePlayer serializes a player record, snapshot included.
func EncodePlayer(p *types.Player) ([]byte, error) {
	cp := *p
	if cp.ActiveQuest != nil {
		snap := Canonical(*cp.ActiveQuest)
		cp.ActiveQuest = &snap
	}
	return json.Marshal(SaveData{Format: FormatVersion, Player: cp})
}

// DecodePlayer deserializes a player record. Collections are never nil
// after load, and a dangling quest id without a snapshot is cleared.
func DecodePlayer(data []byte) (*types.Player, error) {
	var sd SaveData
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, err
	}
	if sd.Format > FormatVersion {
		return nil, fmt.Errorf("player record format %d is newer than %d", sd.Format, FormatVersion)
	}
	p := sd.Player
	if p.Stats == nil {
		p.Stats = map[string]int{}
	}
	if p.Items == nil {
		p.Items = []types.Item{}
	}
	if p.Allies == nil {
		p.Allies = []string{}
	}
	if p.ActiveQuest == nil {
		p.ActiveQuestID = ""
	} else {
		p.ActiveQuestID = p.ActiveQuest.QuestID
	}
	return &p, nil
}

// EncodeSnapshot serializes a snapshot in canonical form.
func EncodeSnapshot(s types.QuestSnapshot) ([]byte, error) {
	return json.Marshal(Canonical(s))
}

// DecodeSnapshot deserializes a snapshot.
func DecodeSnapshot(data []byte) (types.QuestSnapshot, error) {
	var s types.QuestSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return types.QuestSnapshot{}, err
	}
	return Canonical(s), nil
}

// Canonical returns s with empty collections set to nil, which is how they
// come back from JSON. Canonical snapshots compare equal across a round trip.
func Canonical(s types.QuestSnapshot) types.QuestSnapshot {
	c := s.Custom
	if len(c.History) == 0 {
		c.History = nil
	} else {
		h := make([]types.HistoryEntry, len(c.History))
		for i, e := range c.History {
			if len(e.Stats) == 0 {
				e.Stats = nil
			}
			h[i] = e
		}
		c.History = h
	}
	if len(c.Counters) == 0 {
		c.Counters = nil
	}
	if len(c.Flags) == 0 {
		c.Flags = nil
	}
	if len(c.Offered) == 0 {
		c.Offered = nil
	}
	s.Custom = c
	return s
}
