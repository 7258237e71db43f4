package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hupe1980/viewflow/api"
	"github.com/hupe1980/viewflow/core"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted screen session.
//
//	screen: change_password
//	user: {id: 1, email: test@email.com}
//	steps:
//	  - input: currentPassword
//	    value: password
//	  - input: submit
type Scenario struct {
	Screen  string           `yaml:"screen"`
	User    *ScenarioUser    `yaml:"user,omitempty"`
	Token   string           `yaml:"token,omitempty"`
	Project *ScenarioProject `yaml:"project,omitempty"`
	Thread  int64            `yaml:"thread,omitempty"`
	Steps   []Step           `yaml:"steps"`
}

// ScenarioUser is the YAML form of a user.
type ScenarioUser struct {
	ID      int64  `yaml:"id"`
	Name    string `yaml:"name"`
	Email   string `yaml:"email"`
	Country string `yaml:"country"`
	Admin   bool   `yaml:"admin"`
}

func (u *ScenarioUser) user() *core.User {
	return &core.User{ID: u.ID, Name: u.Name, Email: u.Email, Country: u.Country, IsAdmin: u.Admin}
}

// ScenarioProject is the YAML form of the project a project screen opens.
type ScenarioProject struct {
	ID      int64  `yaml:"id"`
	Slug    string `yaml:"slug"`
	Name    string `yaml:"name"`
	Starred bool   `yaml:"starred"`
}

func (p *ScenarioProject) project() api.Project {
	if p == nil {
		return api.Project{}
	}
	return api.Project{ID: p.ID, Slug: p.Slug, Name: p.Name, IsStarred: p.Starred}
}

// Step is exactly one of: an input with an optional value, a wait, a login
// or a logout.
type Step struct {
	Input  string        `yaml:"input,omitempty"`
	Value  any           `yaml:"value,omitempty"`
	Wait   string        `yaml:"wait,omitempty"`
	Login  *ScenarioUser `yaml:"login,omitempty"`
	Logout bool          `yaml:"logout,omitempty"`
}

func (s Step) validate() error {
	n := 0
	for _, set := range []bool{s.Input != "", s.Wait != "", s.Login != nil, s.Logout} {
		if set {
			n++
		}
	}
	if n != 1 {
		return errors.New("a step needs exactly one of input, wait, login, logout")
	}
	return nil
}

// LoadScenario reads a scenario from path, or stdin for "-".
func LoadScenario(path string) (*Scenario, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if sc.Screen == "" {
		return nil, errors.New("parse scenario: screen is required")
	}
	for i, st := range sc.Steps {
		if err := st.validate(); err != nil {
			return nil, fmt.Errorf("parse scenario: step %d: %w", i+1, err)
		}
		if st.Wait != "" {
			if _, err := cast.ToDurationE(st.Wait); err != nil {
				return nil, fmt.Errorf("parse scenario: step %d: %w", i+1, err)
			}
		}
	}
	return &sc, nil
}

// convert coerces a YAML value to the payload type of an input.
func convert(typ string, v any) (any, error) {
	switch typ {
	case "struct {}":
		return struct{}{}, nil
	case "string":
		return cast.ToStringE(v)
	case "bool":
		return cast.ToBoolE(v)
	case "int":
		return cast.ToIntE(v)
	case "int64":
		return cast.ToInt64E(v)
	case "float64":
		return cast.ToFloat64E(v)
	case "time.Duration":
		return cast.ToDurationE(v)
	default:
		return nil, fmt.Errorf("unsupported payload type %s", typ)
	}
}

func waitDuration(s string) time.Duration {
	return cast.ToDuration(s)
}
