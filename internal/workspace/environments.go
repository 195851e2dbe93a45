package workspace

import (
	"regexp"
	"sync"

	"github.com/google/uuid"

	"reqbridge/internal/core"
)

var placeholderPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// EnvironmentSet holds the workspace's environments. At most one is active;
// the active one supplies {{var}} substitutions at execution time.
type EnvironmentSet struct {
	mu       sync.Mutex
	envs     map[string]*core.Environment
	order    []string
	activeID string
}

func NewEnvironmentSet() *EnvironmentSet {
	return &EnvironmentSet{envs: make(map[string]*core.Environment)}
}

func (s *EnvironmentSet) Create(name string, variables map[string]string) core.Environment {
	s.mu.Lock()
	defer s.mu.Unlock()

	env := &core.Environment{
		ID:        uuid.NewString(),
		Name:      name,
		Variables: copyMap(variables),
	}
	if env.Variables == nil {
		env.Variables = map[string]string{}
	}
	s.envs[env.ID] = env
	s.order = append(s.order, env.ID)
	return *env
}

func (s *EnvironmentSet) Update(id, name string, variables map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, ok := s.envs[id]
	if !ok {
		return core.ErrNotFound
	}
	if name != "" {
		env.Name = name
	}
	if variables != nil {
		env.Variables = copyMap(variables)
	}
	return nil
}

func (s *EnvironmentSet) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.envs, id)
	s.order = removeID(s.order, id)
	if s.activeID == id {
		s.activeID = ""
	}
}

// SetActive activates one environment and deactivates the rest.
func (s *EnvironmentSet) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, ok := s.envs[id]
	if !ok {
		return core.ErrNotFound
	}
	for _, e := range s.envs {
		e.IsActive = false
	}
	env.IsActive = true
	s.activeID = id
	return nil
}

func (s *EnvironmentSet) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.envs {
		e.IsActive = false
	}
	s.activeID = ""
}

// Active returns a copy of the active environment, if any.
func (s *EnvironmentSet) Active() (core.Environment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, ok := s.envs[s.activeID]
	if !ok {
		return core.Environment{}, false
	}
	out := *env
	out.Variables = copyMap(env.Variables)
	return out, true
}

func (s *EnvironmentSet) List() []core.Environment {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Environment, 0, len(s.order))
	for _, id := range s.order {
		env := *s.envs[id]
		env.Variables = copyMap(env.Variables)
		out = append(out, env)
	}
	return out
}

// Substitute replaces {{name}} placeholders with active-environment values.
// Names must match a variable exactly; unknown placeholders stay verbatim.
// Without an active environment the input passes through untouched.
func (s *EnvironmentSet) Substitute(in string) string {
	s.mu.Lock()
	env, ok := s.envs[s.activeID]
	if !ok {
		s.mu.Unlock()
		return in
	}
	vars := copyMap(env.Variables)
	s.mu.Unlock()

	return placeholderPattern.ReplaceAllStringFunc(in, func(match string) string {
		name := match[2 : len(match)-2]
		if value, ok := vars[name]; ok {
			return value
		}
		return match
	})
}
