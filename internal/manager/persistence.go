package manager

import (
	"fmt"
	"os"

	goyaml "github.com/goccy/go-yaml"
	"github.com/google/uuid"

	"github.com/bbernstein/sbsp-go/internal/model"
)

// The show file is a human-readable YAML document. CueParam's tagged
// variants do not map onto a struct field set directly, so each cue is
// written as a "type" discriminator plus a "params" bag and converted
// by hand rather than through a custom (Un)MarshalYAML hook.

type wireShow struct {
	Name     string       `yaml:"name"`
	Cues     []wireCue    `yaml:"cues"`
	Settings wireSettings `yaml:"settings"`
}

type wireSettings struct {
	General map[string]interface{} `yaml:"general"`
}

type wireCue struct {
	ID       string                 `yaml:"id"`
	Number   string                 `yaml:"number"`
	Name     string                 `yaml:"name"`
	Notes    string                 `yaml:"notes"`
	PreWait  float64                `yaml:"preWait"`
	PostWait float64                `yaml:"postWait"`
	Sequence string                 `yaml:"sequence"`
	Type     string                 `yaml:"type"`
	Params   map[string]interface{} `yaml:"params"`
}

func writeShowFile(path string, show model.ShowModel) error {
	data, err := goyaml.Marshal(showToWire(show))
	if err != nil {
		return fmt.Errorf("encode show: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func readShowFile(path string) (model.ShowModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ShowModel{}, fmt.Errorf("read %s: %w", path, err)
	}
	var w wireShow
	if err := goyaml.Unmarshal(data, &w); err != nil {
		return model.ShowModel{}, fmt.Errorf("decode show: %w", err)
	}
	return wireToShow(w)
}

func showToWire(m model.ShowModel) wireShow {
	cues := make([]wireCue, len(m.Cues))
	for i, c := range m.Cues {
		cues[i] = cueToWire(c)
	}
	return wireShow{
		Name:     m.Name,
		Cues:     cues,
		Settings: wireSettings{General: map[string]interface{}{}},
	}
}

func wireToShow(w wireShow) (model.ShowModel, error) {
	cues := make([]model.Cue, len(w.Cues))
	for i, wc := range w.Cues {
		c, err := wireToCue(wc)
		if err != nil {
			return model.ShowModel{}, fmt.Errorf("cue %d: %w", i, err)
		}
		cues[i] = c
	}
	return model.ShowModel{
		Name:     w.Name,
		Cues:     cues,
		Settings: model.ShowSettings{},
	}, nil
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
		return model.Cue{}, fmt.Errorf("parse id %q: %w", w.ID, err)
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
	return map[string]interface{}{
		"duration": f.Duration,
		"easing":   string(f.Easing),
	}
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

// asMap handles both map[string]interface{} and map[interface{}]interface{}
// shapes, since YAML decoders vary in which one they hand back for a
// nested mapping.
func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			if ks, ok := k.(string); ok {
				out[ks] = val
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// asFloat handles the numeric types a YAML decoder may produce for a
// scalar (int, int64, float64, uint64) depending on its literal form.
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
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
