package api

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/bbernstein/sbsp-go/internal/controller"
	"github.com/bbernstein/sbsp-go/internal/manager"
)

// inboundEnvelope is the outer tagged union a websocket client sends:
// {"type":"controll"|"model", "data": <command>}.
type inboundEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// namedCommand is the inner shape shared by ControllerCommand and
// ModelCommand: {"command": "...", "params": {...}}.
type namedCommand struct {
	Command string          `json:"command"`
	Params  json.RawMessage `json:"params"`
}

// dispatchInbound parses a single websocket text frame and applies it
// to the Controller or the Manager. An error here means the frame was
// malformed or named an unknown command, or that Controller.Go failed;
// it is logged by the caller and the connection continues.
func dispatchInbound(raw []byte, c *controller.Controller, m *manager.Manager) error {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Type {
	case "controll":
		return dispatchControllerCommand(env.Data, c)
	case "model":
		return dispatchModelCommand(env.Data, m)
	default:
		return fmt.Errorf("unknown command envelope type %q", env.Type)
	}
}

func dispatchControllerCommand(data []byte, c *controller.Controller) error {
	var cmd namedCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return fmt.Errorf("decode controller command: %w", err)
	}

	switch cmd.Command {
	case "go":
		return c.Go()

	case "goFromCue":
		cueID, err := paramCueID(cmd.Params)
		if err != nil {
			return err
		}
		c.GoFromCue(cueID)
		return nil

	case "stopAll":
		c.StopAll()
		return nil

	case "clearError":
		cueID, err := paramCueID(cmd.Params)
		if err != nil {
			return err
		}
		c.ClearError(cueID)
		return nil

	default:
		return fmt.Errorf("unknown controller command %q", cmd.Command)
	}
}

func dispatchModelCommand(data []byte, m *manager.Manager) error {
	var cmd namedCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return fmt.Errorf("decode model command: %w", err)
	}

	switch cmd.Command {
	case "updateCue":
		var p struct {
			Cue wireCue `json:"cue"`
		}
		if err := json.Unmarshal(cmd.Params, &p); err != nil {
			return fmt.Errorf("decode updateCue params: %w", err)
		}
		cue, err := wireToCue(p.Cue)
		if err != nil {
			return err
		}
		m.UpdateCue(cue)
		return nil

	case "addCue":
		var p struct {
			Cue     wireCue `json:"cue"`
			AtIndex int     `json:"atIndex"`
		}
		if err := json.Unmarshal(cmd.Params, &p); err != nil {
			return fmt.Errorf("decode addCue params: %w", err)
		}
		cue, err := wireToCue(p.Cue)
		if err != nil {
			return err
		}
		m.AddCue(cue, p.AtIndex)
		return nil

	case "removeCue":
		cueID, err := paramCueID(cmd.Params)
		if err != nil {
			return err
		}
		m.RemoveCue(cueID)
		return nil

	case "moveCue":
		var p struct {
			CueID   string `json:"cueId"`
			ToIndex int    `json:"toIndex"`
		}
		if err := json.Unmarshal(cmd.Params, &p); err != nil {
			return fmt.Errorf("decode moveCue params: %w", err)
		}
		cueID, err := uuid.Parse(p.CueID)
		if err != nil {
			return fmt.Errorf("parse cueId %q: %w", p.CueID, err)
		}
		m.MoveCue(cueID, p.ToIndex)
		return nil

	case "save":
		m.Save()
		return nil

	case "saveToFile":
		var p struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(cmd.Params, &p); err != nil {
			return fmt.Errorf("decode saveToFile params: %w", err)
		}
		m.SaveToFile(p.Path)
		return nil

	case "loadFromFile":
		var p struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(cmd.Params, &p); err != nil {
			return fmt.Errorf("decode loadFromFile params: %w", err)
		}
		m.LoadFromFile(p.Path)
		return nil

	default:
		return fmt.Errorf("unknown model command %q", cmd.Command)
	}
}

func paramCueID(raw json.RawMessage) (uuid.UUID, error) {
	var p struct {
		CueID string `json:"cueId"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return uuid.UUID{}, fmt.Errorf("decode cueId param: %w", err)
	}
	cueID, err := uuid.Parse(p.CueID)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("parse cueId %q: %w", p.CueID, err)
	}
	return cueID, nil
}
