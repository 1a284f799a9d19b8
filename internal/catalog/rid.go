package catalog

import (
	"strings"

	"github.com/google/uuid"
)

// ResourceID is a canonical identifier for a graph entity, shaped like a
// QuakeML resource identifier: quakeml:<authority>/<Type>/<version>.
type ResourceID string

// RID builds a ResourceID from an authority and path parts. Empty parts are
// skipped, so RID("nn.anss.org", "Origin", "1371545") gives
// "quakeml:nn.anss.org/Origin/1371545".
func RID(authority string, parts ...string) ResourceID {
	elems := make([]string, 0, len(parts)+1)
	elems = append(elems, "quakeml:"+authority)
	for _, p := range parts {
		if p != "" {
			elems = append(elems, p)
		}
	}
	return ResourceID(strings.Join(elems, "/"))
}

// FreshRID mints an identifier for an entity with no usable source version,
// e.g. a placeholder origin synthesized at finalize time.
func FreshRID(authority, typeName string) ResourceID {
	return RID(authority, typeName, uuid.NewString())
}

func (r ResourceID) String() string { return string(r) }

// IsZero reports whether the identifier is unset.
func (r ResourceID) IsZero() bool { return r == "" }
