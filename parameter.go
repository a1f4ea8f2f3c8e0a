// Package textgrad improves the prompt of a small language model by textual
// gradient descent: a stronger model critiques every failure of the small
// model and rewrites its prompt from the aggregated critiques.
package textgrad

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrEmptyData is returned when a parameter would be left without text.
var ErrEmptyData = errors.New("parameter data must not be empty")

// Role tells the optimizer which rewrite strategy applies to a parameter.
type Role int

const (
	RoleInstructions Role = iota
	RoleDemos
)

func (r Role) String() string {
	switch r {
	case RoleInstructions:
		return "instructions"
	case RoleDemos:
		return "demos"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Parameter is a named, mutable piece of prompt text together with the
// feedback gathered against it during the current epoch.
type Parameter struct {
	id        string
	name      string
	data      string
	role      Role
	trainable bool
	gradients []Gradient
}

// NewParameter creates a parameter with a fresh ID. Data may be empty only for
// a parameter that starts out unused, such as an empty demos block.
func NewParameter(name, data string, role Role, trainable bool) *Parameter {
	return &Parameter{
		id:        uuid.NewString(),
		name:      name,
		data:      data,
		role:      role,
		trainable: trainable,
	}
}

func (p *Parameter) ID() string      { return p.id }
func (p *Parameter) Name() string    { return p.name }
func (p *Parameter) Data() string    { return p.data }
func (p *Parameter) Role() Role      { return p.role }
func (p *Parameter) Trainable() bool { return p.trainable }

// Gradients returns a copy of the accumulated gradients in insertion order.
func (p *Parameter) Gradients() []Gradient {
	out := make([]Gradient, len(p.gradients))
	copy(out, p.gradients)
	return out
}

// ResetGradients drops all accumulated gradients.
func (p *Parameter) ResetGradients() {
	p.gradients = nil
}

// AddGradient appends g. Existing gradients are never touched.
func (p *Parameter) AddGradient(g Gradient) {
	p.gradients = append(p.gradients, g)
}

// ReplaceData swaps the whole text value. Blank text is rejected and the
// previous value is kept.
func (p *Parameter) ReplaceData(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyData
	}
	p.data = text
	return nil
}

// ParameterSnapshot is the exported state of a parameter at one point in time.
type ParameterSnapshot struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Trainable bool   `json:"trainable"`
	Data      string `json:"data"`
}

func (p *Parameter) Snapshot() ParameterSnapshot {
	return ParameterSnapshot{
		ID:        p.id,
		Name:      p.name,
		Role:      p.role.String(),
		Trainable: p.trainable,
		Data:      p.data,
	}
}
