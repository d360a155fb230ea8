package vtable

// mostSpecificConcrete picks the candidate declared nearest to the type
// under construction. Superclass vtable entries form a single inheritance
// chain, so declaring types are totally ordered.
func mostSpecificConcrete(locs []location) Method {
	var best Method
	for _, loc := range locs {
		if best == nil || best.DeclaringType().IsAssignableFrom(loc.method.DeclaringType()) {
			best = loc.method
		}
	}
	return best
}

// maximallySpecific returns the candidates that no other candidate's
// declaring type is a subtype of, in first-seen order. Interface
// declarations are only partially ordered; unrelated candidates are all
// kept.
func maximallySpecific(locs []location) []Method {
	var set []Method
	for _, loc := range locs {
		candidate := loc.method
		ct := candidate.DeclaringType()
		dominated := false
		kept := make([]Method, 0, len(set)+1)
		for _, existing := range set {
			et := existing.DeclaringType()
			switch {
			case dominated:
			case ct.IsAssignableFrom(et):
				dominated = true
			case et.IsAssignableFrom(ct):
				continue
			}
			kept = append(kept, existing)
		}
		if !dominated {
			kept = append(kept, candidate)
		}
		set = kept
	}
	return set
}

// resolveMaximallySpecific selects the default method an interface slot
// falls back to when no class in the hierarchy implements the key.
func resolveMaximallySpecific(locs []location) (Slot, Miranda) {
	set := maximallySpecific(locs)

	var concrete []Method
	for _, m := range set {
		if !m.IsAbstract() {
			concrete = append(concrete, m)
		}
	}

	switch len(concrete) {
	case 1:
		return Resolved(concrete[0]), Miranda{Method: concrete[0], Kind: MirandaDefault}
	case 0:
		// Every iLocation is non-nil, so the set is never empty here.
		return Resolved(set[0]), Miranda{Method: set[0], Kind: MirandaUnimplemented}
	default:
		return Ambiguous(), Miranda{Method: locs[0].method, Kind: MirandaAmbiguous}
	}
}
