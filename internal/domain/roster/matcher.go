// Package roster narrows play-by-play data down to plays a fantasy roster
// took part in.
package roster

import "github.com/okian/highlights/internal/domain/model"

// Involved returns the roster members occupying the passer, rusher or
// receiver slot of p, in roster order. Other feed-supplied participants are
// ignored.
func Involved(p model.Play, rosterIDs []string) []string {
	var out []string
	for _, id := range rosterIDs {
		if id == "" {
			continue
		}
		if id == p.PasserID || id == p.RusherID || id == p.ReceiverID {
			out = append(out, id)
		}
	}
	return out
}

// Filter keeps the plays involving at least one roster member and replaces
// their PlayerIDs with the involved members. Input order is preserved and the
// input slice is not modified.
func Filter(plays []model.Play, rosterIDs []string) []model.Play {
	ids := unique(rosterIDs)
	out := make([]model.Play, 0, len(plays))
	for _, p := range plays {
		involved := Involved(p, ids)
		if len(involved) == 0 {
			continue
		}
		p.PlayerIDs = involved
		out = append(out, p)
	}
	return out
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
