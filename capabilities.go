package vfs

// Capability names a trait a backend can advertise. Narrowed from the
// teacher's ten-capability taxonomy (ACL/cache/encrypt/snapshot/
// versioning/…) down to the two facts that actually vary across
// spec.md's three backends — the wider set has no home here since
// spec.md's Non-goals exclude encryption, versioning, ACLs, and
// snapshots outright.
type Capability string

const (
	CapabilityReadOnly   Capability = "read-only"
	CapabilityEnumerable Capability = "enumerable"
)

// Capabilities is the small, queryable trait set a backend reports
// through IFileSystem.Capabilities. It never changes resolution
// semantics in VirtualFileSystem.OpenFile — it exists for diagnostics
// and tests.
type Capabilities struct {
	traits map[Capability]bool
}

// NewCapabilities builds a Capabilities set from the given traits.
func NewCapabilities(traits ...Capability) Capabilities {
	c := Capabilities{traits: make(map[Capability]bool, len(traits))}
	for _, t := range traits {
		c.traits[t] = true
	}

	return c
}

// Has reports whether cap is present in the set.
func (c Capabilities) Has(cap Capability) bool {
	return c.traits[cap]
}
