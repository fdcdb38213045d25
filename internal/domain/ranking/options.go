package ranking

// Option applies a configuration option to the Ranker.
type Option func(*Ranker)

// WithWeights replaces the whole rubric.
func WithWeights(w Weights) Option {
	return func(r *Ranker) {
		r.weights = w
	}
}

// WithTeamChannels replaces the team names that earn the team-channel bonus.
func WithTeamChannels(names ...string) Option {
	return func(r *Ranker) {
		if len(names) > 0 {
			r.weights.TeamNames = append([]string(nil), names...)
		}
	}
}

// WithBonuses overrides individual bonuses by rubric key. Unknown keys and
// zero values are ignored.
func WithBonuses(bonuses map[string]int) Option {
	return func(r *Ranker) {
		for k, v := range bonuses {
			if v == 0 {
				continue
			}
			switch k {
			case "league_channel":
				r.weights.LeagueChannel = v
			case "team_channel":
				r.weights.TeamChannel = v
			case "touchdown":
				r.weights.Touchdown = v
			case "reception":
				r.weights.Reception = v
			case "rush":
				r.weights.Rush = v
			case "player_name":
				r.weights.PlayerName = v
			case "week":
				r.weights.Week = v
			case "high_views":
				r.weights.HighViews = v
			case "mid_views":
				r.weights.MidViews = v
			}
		}
	}
}
