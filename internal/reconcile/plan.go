package reconcile

// Plan is the set of association calls that makes the server set equal to
// the desired selection. Remove lists keys in the server set missing from the
// selection; Add lists every selected key, including ones already linked.
type Plan struct {
	Remove []string
	Add    []string
}

// NewPlan builds the remove-missing, re-add-all plan. Duplicates and empty
// keys in desired are dropped, first occurrence wins.
func NewPlan(current, desired []string) Plan {
	add := dedup(desired)

	want := make(map[string]struct{}, len(add))
	for _, k := range add {
		want[k] = struct{}{}
	}

	var remove []string
	seen := make(map[string]struct{}, len(current))
	for _, k := range current {
		if _, dup := seen[k]; dup || k == "" {
			continue
		}
		seen[k] = struct{}{}
		if _, keep := want[k]; !keep {
			remove = append(remove, k)
		}
	}
	return Plan{Remove: remove, Add: add}
}

// Calls is the number of association calls the plan issues.
func (p Plan) Calls() int {
	return len(p.Remove) + len(p.Add)
}

func dedup(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
