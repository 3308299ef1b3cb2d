package catalog

// Update is a single inbound observation about a title. Zero values mean
// the source did not report that field: an empty Name or Path is never
// applied, and an absent playback timestamp is LastViewNever.
type Update struct {
	Name        string
	Path        string      // root folder path, scoped by Tier
	Tier        QualityTier // tier of the acquisition source that produced Path
	PlaybackKey string
	LastView    int64
}

// NoActivity returns an Update carrying no playback observation. Callers
// populate the fields their source actually reported.
func NoActivity() Update {
	return Update{LastView: LastViewNever}
}

// Merge combines one inbound observation into a title and reports whether
// anything changed. It is pure: the input title is not modified and no
// merge can fail.
//
// Field policy:
//   - Name: most recent observation wins.
//   - PathHD / Path4K: written only by the matching tier, so two
//     acquisition services running at different cadences never clobber
//     each other's path.
//   - PlaybackKey: a known key is never erased by an empty one.
//   - LastView: monotonic max. Activity sources are independently sourced
//     and deliver out of order; a stale report must not erase a more
//     recent true viewing.
//   - Protected: never touched here. Only an explicit protect operation
//     may change it.
func Merge(t Title, u Update) (Title, bool) {
	changed := false

	if u.Name != "" && u.Name != t.Name {
		t.Name = u.Name
		changed = true
	}

	if u.Path != "" {
		switch u.Tier {
		case TierHD:
			if t.PathHD != u.Path {
				t.PathHD = u.Path
				changed = true
			}
		case Tier4K:
			if t.Path4K != u.Path {
				t.Path4K = u.Path
				changed = true
			}
		}
	}

	if u.PlaybackKey != "" && u.PlaybackKey != t.PlaybackKey {
		t.PlaybackKey = u.PlaybackKey
		changed = true
	}

	if u.LastView > t.LastView {
		t.LastView = u.LastView
		changed = true
	}

	return t, changed
}
