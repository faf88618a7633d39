package backup

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/okian/rebar/internal/adapters/repository"
	"github.com/okian/rebar/internal/domain/identity"
	"github.com/okian/rebar/internal/domain/model"
	"github.com/okian/rebar/internal/domain/ratelimit"
)

// snapshot is the persisted form of repository.State.
type snapshot struct {
	ID      string                                `json:"id"`
	TakenAt int64                                 `json:"taken_at"`
	Items   []itemRecord                          `json:"items"`
	Ranked  []int                                 `json:"ranked"`
	Pending int                                   `json:"pending"`
	Ledger  map[identity.CallerID]ratelimit.Entry `json:"ledger"`
	Seen    []string                              `json:"seen"`
}

type itemRecord struct {
	Description string              `json:"description"`
	Source      model.SourceRecord  `json:"source"`
	SubmittedAt float64             `json:"submitted_at"`
	Submitter   identity.CallerID   `json:"submitter"`
	Votes       int                 `json:"votes"`
	Voters      []identity.CallerID `json:"voters"`
}

func encode(st *repository.State, id string, takenAt int64) ([]byte, error) {
	snap := snapshot{
		ID:      id,
		TakenAt: takenAt,
		Items:   make([]itemRecord, 0, len(st.Items)),
		Ranked:  st.Ranked,
		Pending: st.Pending,
		Ledger:  st.Ledger,
		Seen:    st.Seen,
	}
	for _, it := range st.Items {
		voters := make([]identity.CallerID, 0, len(it.Voters))
		for v := range it.Voters {
			voters = append(voters, v)
		}
		slices.Sort(voters)
		snap.Items = append(snap.Items, itemRecord{
			Description: it.Description,
			Source:      model.EncodeSource(it.Source),
			SubmittedAt: it.SubmittedAt,
			Submitter:   it.Submitter,
			Votes:       it.Votes,
			Voters:      voters,
		})
	}
	return json.Marshal(&snap)
}

func decode(data []byte) (*repository.State, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	st := &repository.State{
		Items:   make([]model.Item, 0, len(snap.Items)),
		Ranked:  snap.Ranked,
		Pending: snap.Pending,
		Ledger:  snap.Ledger,
		Seen:    snap.Seen,
	}
	for i, rec := range snap.Items {
		src, err := model.DecodeSource(rec.Source)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrCorruptSnapshot, i, err)
		}
		voters := make(map[identity.CallerID]struct{}, len(rec.Voters))
		for _, v := range rec.Voters {
			voters[v] = struct{}{}
		}
		st.Items = append(st.Items, model.Item{
			Description: rec.Description,
			Source:      src,
			SubmittedAt: rec.SubmittedAt,
			Submitter:   rec.Submitter,
			Votes:       rec.Votes,
			Voters:      voters,
		})
	}
	if st.Ledger == nil {
		st.Ledger = make(map[identity.CallerID]ratelimit.Entry)
	}
	return st, nil
}
