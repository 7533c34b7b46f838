package plan

// AttrsFilterCombineOptimizerRule coalesces sibling attribute comparisons
// within an And node that target the same AttrScope into a single
// AttrsScanFilterPlan, so the physical executor performs one scan over
// the attributes table instead of one per predicate.
func AttrsFilterCombineOptimizerRule(p FilterPlan) FilterPlan {
	switch n := p.(type) {
	case *AndFilterPlan:
		operands := make([]FilterPlan, len(n.Operands))
		for i, o := range n.Operands {
			operands[i] = AttrsFilterCombineOptimizerRule(o)
		}
		return coalesceAttrsScans(operands)
	case *OrFilterPlan:
		operands := make([]FilterPlan, len(n.Operands))
		for i, o := range n.Operands {
			operands[i] = AttrsFilterCombineOptimizerRule(o)
		}
		return &OrFilterPlan{Operands: operands}
	default:
		return p
	}
}

func coalesceAttrsScans(operands []FilterPlan) FilterPlan {
	byScope := map[AttrScope][]FilterPredicate{}
	var order []AttrScope
	var other []FilterPlan

	for _, o := range operands {
		leaf, ok := o.(*LeafFilterPlan)
		if !ok || leaf.Predicate.Column.Kind != AccessorAttributes {
			other = append(other, o)
			continue
		}
		scope := leaf.Predicate.Column.Scope
		if _, seen := byScope[scope]; !seen {
			order = append(order, scope)
		}
		byScope[scope] = append(byScope[scope], leaf.Predicate)
	}

	var merged []FilterPlan
	for _, scope := range order {
		preds := byScope[scope]
		if len(preds) == 1 {
			merged = append(merged, &LeafFilterPlan{Predicate: preds[0]})
			continue
		}
		merged = append(merged, &AttrsScanFilterPlan{Scope: scope, Predicates: preds})
	}
	merged = append(merged, other...)

	if len(merged) == 1 {
		return merged[0]
	}
	return &AndFilterPlan{Operands: merged}
}
