package registry

// HorizonControlled is embedded (anonymously) by application entity types
// that are subject to data-horizon eviction during synchronize
// (spec.md §4.5). It carries no data; it exists purely so the Registry can
// detect the opt-in via an interface check.
type HorizonControlled struct{}

func (HorizonControlled) dataHorizonControlled() {}

type horizonMarker interface {
	dataHorizonControlled()
}

// Abstract is embedded (anonymously) by application types that exist only
// to be embedded by other entity types (spec.md §3's non-object-type: an
// abstract base used for shared fields, never itself a concrete leaf).
type Abstract struct{}

func (Abstract) abstractEntity() {}

type abstractMarker interface {
	abstractEntity()
}
