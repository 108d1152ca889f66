package persona

import (
	"fmt"
	"os"
	"strings"

	"github.com/Iron-Ham/duet/internal/errors"
	"gopkg.in/yaml.v3"
)

// AgentID identifies one of the conversational agents.
type AgentID int

const (
	// AgentA is the first agent and the default opener.
	AgentA AgentID = iota
	// AgentB is the second agent.
	AgentB
)

// String returns the short symbolic name used in config keys and logs.
func (id AgentID) String() string {
	switch id {
	case AgentA:
		return "A"
	case AgentB:
		return "B"
	default:
		return fmt.Sprintf("agent(%d)", int(id))
	}
}

// Key returns the lower-case config key for the agent ("a", "b").
func (id AgentID) Key() string {
	return strings.ToLower(id.String())
}

// ParseAgentID converts "a"/"A"/"b"/"B" into an AgentID.
func ParseAgentID(s string) (AgentID, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return AgentA, nil
	case "B":
		return AgentB, nil
	default:
		return 0, errors.NewValidationError("unknown agent").WithValue(s)
	}
}

// Persona is the fixed identity bound to an agent.
type Persona struct {
	ID           AgentID
	Name         string
	Avatar       string
	SystemPrompt string
}

// Registry is an immutable mapping from AgentID to Persona. It also fixes
// the rotation order of the conversation.
type Registry struct {
	order    []AgentID
	personas map[AgentID]Persona
}

// NewRegistry builds a registry whose rotation starts with opener.
// Both agents must be present exactly once.
func NewRegistry(opener AgentID, personas ...Persona) (*Registry, error) {
	if len(personas) != 2 {
		return nil, errors.NewValidationError(fmt.Sprintf("expected 2 personas, got %d", len(personas)))
	}

	byID := make(map[AgentID]Persona, len(personas))
	for _, p := range personas {
		if p.ID != AgentA && p.ID != AgentB {
			return nil, errors.NewValidationError("unknown agent").WithValue(p.ID.String())
		}
		if _, dup := byID[p.ID]; dup {
			return nil, errors.NewValidationError("duplicate persona").WithValue(p.ID.String())
		}
		if strings.TrimSpace(p.Name) == "" {
			return nil, errors.NewValidationError("name cannot be empty").WithField("personas." + p.ID.Key() + ".name")
		}
		if strings.TrimSpace(p.SystemPrompt) == "" {
			return nil, errors.NewValidationError("system prompt cannot be empty").WithField("personas." + p.ID.Key() + ".system_prompt")
		}
		byID[p.ID] = p
	}
	if _, ok := byID[opener]; !ok {
		return nil, errors.NewValidationError("opener is not a registered agent").WithValue(opener.String())
	}

	order := []AgentID{opener}
	for _, id := range []AgentID{AgentA, AgentB} {
		if id != opener {
			order = append(order, id)
		}
	}

	return &Registry{order: order, personas: byID}, nil
}

// Get returns the persona for id.
func (r *Registry) Get(id AgentID) (Persona, error) {
	p, ok := r.personas[id]
	if !ok {
		return Persona{}, errors.NewNotFoundError("persona", id.String())
	}
	return p, nil
}

// MustGet returns the persona for id and panics if it is unknown.
func (r *Registry) MustGet(id AgentID) Persona {
	p, err := r.Get(id)
	if err != nil {
		panic(err)
	}
	return p
}

// Name returns the display name for id, or the symbolic id if unknown.
func (r *Registry) Name(id AgentID) string {
	if p, ok := r.personas[id]; ok {
		return p.Name
	}
	return id.String()
}

// Opener returns the agent that starts every conversation.
func (r *Registry) Opener() AgentID {
	return r.order[0]
}

// Order returns the rotation order.
func (r *Registry) Order() []AgentID {
	out := make([]AgentID, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of participants.
func (r *Registry) Len() int {
	return len(r.order)
}

// Index returns the rotation index of id, or -1 if id is not registered.
func (r *Registry) Index(id AgentID) int {
	for i, o := range r.order {
		if o == id {
			return i
		}
	}
	return -1
}

// At returns the agent at rotation index i (modulo the participant count).
func (r *Registry) At(i int) AgentID {
	n := len(r.order)
	return r.order[((i%n)+n)%n]
}

// Next returns the agent that speaks after id.
func (r *Registry) Next(id AgentID) AgentID {
	return r.At(r.Index(id) + 1)
}

// Contains reports whether id is registered.
func (r *Registry) Contains(id AgentID) bool {
	_, ok := r.personas[id]
	return ok
}

// -----------------------------------------------------------------------------
// Defaults and file loading
// -----------------------------------------------------------------------------

const alexPrompt = `You are Alex, a curious and philosophical person having a casual chat with Jordan.

Your style:
- Keep responses SHORT - 1-3 sentences max, like real texting/chatting
- Be natural and conversational, not formal or preachy
- Ask questions sometimes, but not every message
- React to what they say, don't just lecture
- Use casual language, contractions, maybe even humor
- Sometimes just agree or share a quick thought

You're NOT writing essays. You're having a chill conversation. Short and sweet.`

const jordanPrompt = `You are Jordan, a witty and practical person having a casual chat with Alex.

Your style:
- Keep responses SHORT - 1-3 sentences max, like real texting/chatting
- Be direct, maybe a bit sarcastic or funny
- Challenge ideas but keep it light
- React naturally, don't monologue
- Use casual language, like you're talking to a friend
- Sometimes just respond with a quick take or joke

You're NOT writing essays. You're having a chill conversation. Keep it punchy and real.`

// Defaults returns the built-in persona pair.
func Defaults() []Persona {
	return []Persona{
		{ID: AgentA, Name: "Alex", Avatar: "🧠", SystemPrompt: alexPrompt},
		{ID: AgentB, Name: "Jordan", Avatar: "🎭", SystemPrompt: jordanPrompt},
	}
}

// DefaultRegistry returns the built-in registry with Alex opening.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(AgentA, Defaults()...)
	if err != nil {
		panic(err)
	}
	return r
}

// File is the on-disk YAML shape of a persona override file.
type File struct {
	Opener   string                 `yaml:"opener,omitempty"`
	Personas map[string]FilePersona `yaml:"personas"`
}

// FilePersona is one persona entry in a File. Empty fields keep the
// built-in value.
type FilePersona struct {
	Name         string `yaml:"name,omitempty"`
	Avatar       string `yaml:"avatar,omitempty"`
	SystemPrompt string `yaml:"system_prompt,omitempty"`
}

// Parse builds a registry from YAML data layered over the defaults.
func Parse(data []byte) (*Registry, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.NewValidationError("failed to parse persona file").WithCause(err)
	}

	base := Defaults()
	for key, fp := range f.Personas {
		id, err := ParseAgentID(key)
		if err != nil {
			return nil, err
		}
		p := &base[id]
		if fp.Name != "" {
			p.Name = fp.Name
		}
		if fp.Avatar != "" {
			p.Avatar = fp.Avatar
		}
		if fp.SystemPrompt != "" {
			p.SystemPrompt = strings.TrimSpace(fp.SystemPrompt)
		}
	}

	opener := AgentA
	if f.Opener != "" {
		id, err := ParseAgentID(f.Opener)
		if err != nil {
			return nil, err
		}
		opener = id
	}

	return NewRegistry(opener, base...)
}

// Load reads a persona file. An empty path yields the default registry.
func Load(path string) (*Registry, error) {
	if path == "" {
		return DefaultRegistry(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read persona file %s", path)
	}
	return Parse(data)
}

// Marshal renders the registry in the File format.
func (r *Registry) Marshal() ([]byte, error) {
	f := File{
		Opener:   r.Opener().Key(),
		Personas: make(map[string]FilePersona, len(r.personas)),
	}
	for id, p := range r.personas {
		f.Personas[id.Key()] = FilePersona{
			Name:         p.Name,
			Avatar:       p.Avatar,
			SystemPrompt: p.SystemPrompt,
		}
	}
	return yaml.Marshal(f)
}
