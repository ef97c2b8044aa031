package inmem

import (
	"maps"
	"sync"

	"github.com/talgya/colony-ai/internal/mission"
)

// MissionStore keeps mission records in memory.
type MissionStore struct {
	mu sync.Mutex
	m  map[string]mission.Record
}

// NewMissionStore creates an empty store.
func NewMissionStore() *MissionStore {
	return &MissionStore{m: make(map[string]mission.Record)}
}

func key(settlementID, missionID string) string { return settlementID + "/" + missionID }

func (s *MissionStore) LoadMission(settlementID, missionID string) (mission.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.m[key(settlementID, missionID)]
	if !ok {
		return mission.Record{}, false, nil
	}
	r.Produced = maps.Clone(r.Produced)
	r.Consumed = maps.Clone(r.Consumed)
	return r, true, nil
}

func (s *MissionStore) SaveMission(r mission.Record) error {
	r.Produced = maps.Clone(r.Produced)
	r.Consumed = maps.Clone(r.Consumed)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key(r.SettlementID, r.MissionID)] = r
	return nil
}
