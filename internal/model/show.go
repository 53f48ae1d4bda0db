package model

// GeneralSettings is intentionally empty in the core — it is opaque
// configuration the authoring UI can grow without the backend caring,
// mirroring the original implementation's reserved settings block.
type GeneralSettings struct{}

// ShowSettings is structured, core-opaque configuration carried
// alongside the cue list.
type ShowSettings struct {
	General GeneralSettings
}

// ShowModel is the authored document: a name, an ordered cue list
// (order is the default playback order), and settings.
type ShowModel struct {
	Name     string
	Cues     []Cue
	Settings ShowSettings
}

// Clone returns a deep copy of the show model suitable for handing to
// a reader without risking a data race with the Model Manager's
// writer goroutine.
func (m ShowModel) Clone() ShowModel {
	clone := m
	clone.Cues = make([]Cue, len(m.Cues))
	for i, c := range m.Cues {
		clone.Cues[i] = c.Clone()
	}
	return clone
}

// FindCue returns the index of the cue with the given id, or -1.
func (m ShowModel) FindCue(id CueID) int {
	for i, c := range m.Cues {
		if c.ID == id {
			return i
		}
	}
	return -1
}
