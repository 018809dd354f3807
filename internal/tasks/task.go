// Package tasks defines the deploy tasks and runs them against an
// environment's hosts.
//
// The registry is a fixed table built once at startup. A task declares the
// environment keys it needs, the tasks it invokes, and a body that issues
// remote commands through a host-bound Context.
package tasks

import (
	"fmt"
	"sort"

	"github.com/rileyhilliard/rollout/internal/config"
	"github.com/rileyhilliard/rollout/internal/errors"
	"github.com/rileyhilliard/rollout/internal/util"
)

// Task is a named deploy operation.
type Task struct {
	Name        string
	Description string

	// Requires lists the environment keys that must be resolved.
	Requires []string

	// Invokes lists the tasks the body runs, in order. It drives Plan.
	Invokes []string

	// Notes describe conditional behavior for Plan, e.g. a production
	// confirmation or a step that is skipped when a file is absent.
	Notes []string

	Run func(c *Context) error
}

// Registry maps task names to tasks.
type Registry struct {
	tasks map[string]*Task
	order []string
}

// NewRegistry builds a registry from tasks. Duplicate names and invokes
// of unknown tasks are programming errors and panic.
func NewRegistry(tasks ...*Task) *Registry {
	r := &Registry{tasks: make(map[string]*Task, len(tasks))}
	for _, t := range tasks {
		if _, dup := r.tasks[t.Name]; dup {
			panic(fmt.Sprintf("tasks: duplicate task %q", t.Name))
		}
		r.tasks[t.Name] = t
		r.order = append(r.order, t.Name)
	}
	for _, t := range tasks {
		for _, sub := range t.Invokes {
			if _, ok := r.tasks[sub]; !ok {
				panic(fmt.Sprintf("tasks: %q invokes unknown task %q", t.Name, sub))
			}
		}
	}
	return r
}

// Get returns the named task.
func (r *Registry) Get(name string) (*Task, bool) {
	t, ok := r.tasks[name]
	return t, ok
}

// Names returns task names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Tasks returns all tasks in registration order.
func (r *Registry) Tasks() []*Task {
	out := make([]*Task, len(r.order))
	for i, name := range r.order {
		out[i] = r.tasks[name]
	}
	return out
}

// Validate checks that every name is a registered task. The error for an
// unknown name suggests close matches.
func (r *Registry) Validate(names []string) error {
	if len(names) == 0 {
		return errors.New(errors.ErrConfig,
			"No task given",
			"Run 'rollout tasks' to list the available tasks")
	}
	for _, name := range names {
		if _, ok := r.tasks[name]; ok {
			continue
		}
		if config.IsReservedName(name) {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("'%s' is a command, not a task", name),
				fmt.Sprintf("Run it on its own: rollout %s", name))
		}
		suggestion := "Run 'rollout tasks' to list the available tasks"
		if similar := util.SuggestSimilar(name, r.sortedNames(), 3); len(similar) > 0 {
			suggestion = "Did you mean: " + util.JoinOrNone(similar) + "?"
		}
		return errors.New(errors.ErrConfig, fmt.Sprintf("Unknown task '%s'", name), suggestion)
	}
	return nil
}

func (r *Registry) sortedNames() []string {
	names := r.Names()
	sort.Strings(names)
	return names
}
