package plan

// Step is one entry of the execution sequence: either a pipeline of
// local nodes runnable partition-by-partition, or a single global node
// acting as a barrier.
type Step struct {
	Pipeline []*Node
	Global   *Node
}

// IsGlobal reports whether the step is a barrier.
func (s Step) IsGlobal() bool {
	return s.Global != nil
}

// ExecutionSteps walks the DAG once, cutting edges at global operators so
// that each maximal run of local nodes forms a pipeline. The returned
// sequence alternates pipelines and globals in dependency order; running
// it front to back evaluates the plan.
func (p *Plan) ExecutionSteps() ([]Step, error) {
	order, err := p.TopoOrder()
	if err != nil {
		return nil, err
	}

	var steps []Step
	var pipeline []*Node
	flush := func() {
		if len(pipeline) > 0 {
			steps = append(steps, Step{Pipeline: pipeline})
			pipeline = nil
		}
	}
	for _, n := range order {
		if n.Kind.Global() {
			flush()
			steps = append(steps, Step{Global: n})
			continue
		}
		pipeline = append(pipeline, n)
	}
	flush()
	return steps, nil
}
