// Package api exposes the core over a websocket and a couple of
// one-shot HTTP endpoints. Every type in this file is a JSON wire
// shape; conversions to and from the core's model/event/controller
// types are explicit, matching how the show file's YAML wire structs
// are handled in internal/manager/persistence.go.
package api

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/bbernstein/sbsp-go/internal/event"
	"github.com/bbernstein/sbsp-go/internal/model"
)

type wireCue struct {
	ID       string                 `json:"id"`
	Number   string                 `json:"number"`
	Name     string                 `json:"name"`
	Notes    string                 `json:"notes"`
	PreWait  float64                `json:"preWait"`
	PostWait float64                `json:"postWait"`
	Sequence string                 `json:"sequence"`
	Type     string                 `json:"type"`
	Params   map[string]interface{} `json:"params"`
}

type wireShowModel struct {
	Name     string                 `json:"name"`
	Cues     []wireCue              `json:"cues"`
	Settings map[string]interface{} `json:"settings"`
}

type wireActiveCue struct {
	CueID    string  `json:"cueId"`
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
	Status   string  `json:"status"`
}

type wireShowState struct {
	PlaybackCursor *string                   `json:"playbackCursor"`
	ActiveCues     map[string]wireActiveCue `json:"activeCues"`
}

type wireFullState struct {
	ShowModel wireShowModel `json:"showModel"`
	ShowState wireShowState `json:"showState"`
}

func cueToWire(c model.Cue) wireCue {
	return wireCue{
		ID:       c.ID.String(),
		Number:   c.Number,
		Name:     c.Name,
		Notes:    c.Notes,
		PreWait:  c.PreWait,
		PostWait: c.PostWait,
		Sequence: string(c.Sequence),
		Type:     model.ParamKind(c.Param),
		Params:   paramToWire(c.Param),
	}
}

func wireToCue(w wireCue) (model.Cue, error) {
	id, err := uuid.Parse(w.ID)
	if err != nil {
		return model.Cue{}, fmt.Errorf("parse cue id %q: %w", w.ID, err)
	}
	param, err := wireToParam(w.Type, w.Params)
	if err != nil {
		return model.Cue{}, fmt.Errorf("cue %s: %w", w.ID, err)
	}
	sequence := model.CueSequence(w.Sequence)
	if sequence == "" {
		sequence = model.SequenceDoNotContinue
	}
	return model.Cue{
		ID:       id,
		Number:   w.Number,
		Name:     w.Name,
		Notes:    w.Notes,
		PreWait:  w.PreWait,
		PostWait: w.PostWait,
		Sequence: sequence,
		Param:    param,
	}, nil
}

func showModelToWire(m model.ShowModel) wireShowModel {
	cues := make([]wireCue, len(m.Cues))
	for i, c := range m.Cues {
		cues[i] = cueToWire(c)
	}
	return wireShowModel{Name: m.Name, Cues: cues, Settings: map[string]interface{}{}}
}

func showStateToWire(s model.ShowState) wireShowState {
	var cursor *string
	if s.PlaybackCursor != nil {
		id := s.PlaybackCursor.String()
		cursor = &id
	}
	activeCues := make(map[string]wireActiveCue, len(s.ActiveCues))
	for id, ac := range s.ActiveCues {
		activeCues[id.String()] = wireActiveCue{
			CueID:    ac.CueID.String(),
			Position: ac.Position,
			Duration: ac.Duration,
			Status:   string(ac.Status),
		}
	}
	return wireShowState{PlaybackCursor: cursor, ActiveCues: activeCues}
}

func paramToWire(p model.CueParam) map[string]interface{} {
	switch v := p.(type) {
	case model.AudioParam:
		params := map[string]interface{}{
			"target": v.Target,
			"levels": map[string]interface{}{"master": v.Levels.Master},
		}
		if v.StartTime != nil {
			params["startTime"] = *v.StartTime
		}
		if v.EndTime != nil {
			params["endTime"] = *v.EndTime
		}
		if v.FadeIn != nil {
			params["fadeIn"] = fadeToWire(*v.FadeIn)
		}
		if v.FadeOut != nil {
			params["fadeOut"] = fadeToWire(*v.FadeOut)
		}
		if v.LoopRegion != nil {
			params["loopRegion"] = map[string]interface{}{
				"start": v.LoopRegion.Start,
				"end":   v.LoopRegion.End,
			}
		}
		return params

	case model.WaitParam:
		return map[string]interface{}{"duration": v.Duration}

	case model.GroupParam:
		ids := make([]string, len(v.CueIDs))
		for i, id := range v.CueIDs {
			ids[i] = id.String()
		}
		return map[string]interface{}{"cueIds": ids}

	default:
		return map[string]interface{}{}
	}
}

func fadeToWire(f model.FadeParam) map[string]interface{} {
	return map[string]interface{}{"duration": f.Duration, "easing": string(f.Easing)}
}

func wireToParam(kind string, params map[string]interface{}) (model.CueParam, error) {
	switch kind {
	case model.KindAudio:
		target, _ := params["target"].(string)
		p := model.AudioParam{Target: target}
		if levels, ok := asMap(params["levels"]); ok {
			if master, ok := asFloat(levels["master"]); ok {
				p.Levels.Master = master
			}
		}
		if v, ok := asFloat(params["startTime"]); ok {
			p.StartTime = &v
		}
		if v, ok := asFloat(params["endTime"]); ok {
			p.EndTime = &v
		}
		if fade, ok := asMap(params["fadeIn"]); ok {
			f := wireToFade(fade)
			p.FadeIn = &f
		}
		if fade, ok := asMap(params["fadeOut"]); ok {
			f := wireToFade(fade)
			p.FadeOut = &f
		}
		if lr, ok := asMap(params["loopRegion"]); ok {
			start, _ := asFloat(lr["start"])
			end, _ := asFloat(lr["end"])
			p.LoopRegion = &model.LoopRegion{Start: start, End: end}
		}
		return p, nil

	case model.KindWait:
		duration, _ := asFloat(params["duration"])
		return model.WaitParam{Duration: duration}, nil

	case model.KindMidi:
		return model.MidiParam{}, nil

	case model.KindOsc:
		return model.OscParam{}, nil

	case model.KindGroup:
		var ids []uuid.UUID
		if raw, ok := params["cueIds"].([]interface{}); ok {
			for _, item := range raw {
				s, _ := item.(string)
				id, err := uuid.Parse(s)
				if err != nil {
					return nil, fmt.Errorf("parse group cue id %q: %w", s, err)
				}
				ids = append(ids, id)
			}
		}
		return model.GroupParam{CueIDs: ids}, nil

	default:
		return nil, fmt.Errorf("unknown cue type %q", kind)
	}
}

func wireToFade(m map[string]interface{}) model.FadeParam {
	duration, _ := asFloat(m["duration"])
	easing, _ := m["easing"].(string)
	return model.FadeParam{Duration: duration, Easing: model.Easing(easing)}
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// outbound envelope: {"type":"event"|"state", "data": ...}

type wireEnvelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type wireUiError struct {
	Type    string `json:"type"`
	Path    string `json:"path,omitempty"`
	CueID   string `json:"cueId,omitempty"`
	Message string `json:"message"`
}

func uiErrorToWire(e event.UiError) wireUiError {
	w := wireUiError{Type: string(e.Kind), Message: e.Message}
	if e.Path != "" {
		w.Path = e.Path
	}
	if e.CueID != uuid.Nil {
		w.CueID = e.CueID.String()
	}
	return w
}

type wireUiEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

func uiEventToWire(e event.UiEvent) wireUiEvent {
	switch e.Kind {
	case event.KindCueStarted, event.KindCuePaused, event.KindCueResumed,
		event.KindCueCompleted, event.KindPlaybackCursorMoved, event.KindCueRemoved:
		return wireUiEvent{Type: string(e.Kind), Data: map[string]interface{}{"cueId": e.CueID.String()}}

	case event.KindCueError:
		return wireUiEvent{Type: string(e.Kind), Data: map[string]interface{}{
			"cueId": e.CueID.String(), "error": e.Error,
		}}

	case event.KindShowModelLoaded, event.KindShowModelSaved:
		return wireUiEvent{Type: string(e.Kind), Data: map[string]interface{}{"path": e.Path}}

	case event.KindCueUpdated:
		return wireUiEvent{Type: string(e.Kind), Data: map[string]interface{}{"cue": cueToWire(e.Cue)}}

	case event.KindCueAdded:
		return wireUiEvent{Type: string(e.Kind), Data: map[string]interface{}{
			"cue": cueToWire(e.Cue), "atIndex": e.AtIndex,
		}}

	case event.KindCueMoved:
		return wireUiEvent{Type: string(e.Kind), Data: map[string]interface{}{
			"cueId": e.CueID.String(), "toIndex": e.ToIndex,
		}}

	case event.KindOperationFailed:
		return wireUiEvent{Type: string(e.Kind), Data: map[string]interface{}{"error": uiErrorToWire(e.OpError)}}

	default:
		return wireUiEvent{Type: string(e.Kind)}
	}
}
