package tasks

import (
	"fmt"
	"strings"
)

// PlanStep is one task in an expanded invocation tree.
type PlanStep struct {
	Task  *Task
	Depth int
}

// Plan is the ordered invocation tree of a task, as Invokes declares it.
// Conditional behavior is carried in each step's Task.Notes.
type Plan struct {
	Target string
	Steps  []PlanStep
}

// Plan expands name into the tasks it runs, depth first, in order.
// Tasks invoked more than once appear each time they run.
func (r *Registry) Plan(name string) (*Plan, error) {
	if err := r.Validate([]string{name}); err != nil {
		return nil, err
	}
	plan := &Plan{Target: name}
	if err := r.buildPlan(name, 0, nil, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (r *Registry) buildPlan(name string, depth int, stack []string, plan *Plan) error {
	for _, s := range stack {
		if s == name {
			return fmt.Errorf("task cycle: %s -> %s", strings.Join(stack, " -> "), name)
		}
	}
	task, ok := r.tasks[name]
	if !ok {
		return fmt.Errorf("task '%s' not found", name)
	}

	plan.Steps = append(plan.Steps, PlanStep{Task: task, Depth: depth})
	stack = append(stack, name)
	for _, sub := range task.Invokes {
		if err := r.buildPlan(sub, depth+1, stack, plan); err != nil {
			return err
		}
	}
	return nil
}

// Names returns the task names in run order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Task.Name
	}
	return names
}

// String renders the plan as an indented tree.
func (p *Plan) String() string {
	var b strings.Builder
	for _, s := range p.Steps {
		indent := strings.Repeat("  ", s.Depth)
		b.WriteString(indent)
		b.WriteString(s.Task.Name)
		b.WriteString("\n")
		for _, note := range s.Task.Notes {
			fmt.Fprintf(&b, "%s  ? %s\n", indent, note)
		}
	}
	return b.String()
}
