package session

import (
	"encoding/json"
	"fmt"
)

// Phase is the scheduler's sub-state while a session exists. COMPLETED
// is terminal; a new Start or a Reset leaves it.
type Phase int

const (
	PhaseSession Phase = iota
	PhaseBreak
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseBreak:
		return "break"
	case PhaseCompleted:
		return "completed"
	default:
		return "session"
	}
}

func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Phase) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "session":
		*p = PhaseSession
	case "break":
		*p = PhaseBreak
	case "completed":
		*p = PhaseCompleted
	default:
		return fmt.Errorf("unknown phase %q", s)
	}
	return nil
}

// EnvStatus is the environment quality reported by the external
// classifier. It only modulates the warning cadence; the scheduler never
// derives it itself.
type EnvStatus int

const (
	EnvIdeal EnvStatus = iota
	EnvDegraded
	EnvPoor
)

func (e EnvStatus) String() string {
	switch e {
	case EnvDegraded:
		return "degraded"
	case EnvPoor:
		return "poor"
	default:
		return "ideal"
	}
}

func ParseEnvStatus(s string) (EnvStatus, error) {
	switch s {
	case "ideal":
		return EnvIdeal, nil
	case "degraded":
		return EnvDegraded, nil
	case "poor":
		return EnvPoor, nil
	}
	return EnvIdeal, fmt.Errorf("unknown env status %q", s)
}
