package interference

// Decision is what a PolicyModule returns: live way quotas (for the LLC's
// cache.TagStore.SetWayQuotas) and/or MSHR counts per core, applied
// without re-instantiating any component, per spec.md section 4.10's
// "may mutate those live without re-instantiation".
type Decision struct {
	WayQuotas  map[int]int
	MSHRQuotas map[int]int
}

// PolicyModule is the external collaborator contract of spec.md section
// 4.10: given a periodic PerformanceMeasurement, it returns resource
// quotas. Grounded on BasePolicy's abstract "periodic measurement in,
// allocation decision out" shape in
// mem/policy/base_policy.hh (not copied verbatim - that file is mostly
// SimObject/stats plumbing out of scope here).
type PolicyModule interface {
	Evaluate(m PerformanceMeasurement) Decision
}
