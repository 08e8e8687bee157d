package serials

// Plan is the exact set of row changes that reconciles stored serials with a
// submission. Matching is positional: input position i maps to unit index
// i+1. Rows whose value already matches are left alone, so re-saving the
// same input is a no-op.
type Plan struct {
	Updates []Update
	Creates []Create
	Deletes []string // row ids past the new input length
}

type Update struct {
	ID    string
	Value string
}

type Create struct {
	UnitIndex int
	Value     string
}

func (p Plan) Empty() bool {
	return len(p.Updates) == 0 && len(p.Creates) == 0 && len(p.Deletes) == 0
}

// BuildPlan diffs existing rows against normalized input values.
func BuildPlan(existing []SerialNumber, values []string) Plan {
	byIndex := make(map[int]SerialNumber, len(existing))
	for _, sn := range existing {
		byIndex[sn.UnitIndex] = sn
	}

	var plan Plan
	for i, v := range values {
		idx := i + 1
		cur, ok := byIndex[idx]
		switch {
		case !ok:
			plan.Creates = append(plan.Creates, Create{UnitIndex: idx, Value: v})
		case cur.Value != v:
			plan.Updates = append(plan.Updates, Update{ID: cur.ID, Value: v})
		}
	}

	// Quantity shrank: indices beyond the input are pruned here, and only
	// here. The webhook path never deletes serials.
	for _, sn := range existing {
		if sn.UnitIndex > len(values) {
			plan.Deletes = append(plan.Deletes, sn.ID)
		}
	}
	return plan
}
