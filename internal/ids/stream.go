package ids

import "fmt"

// Domain is a finite enum of event-stream domains. Only the two domains
// this module actually persists are defined; the spec allows for more to
// exist in a deployment, so the zero value is reserved and never valid.
type Domain string

const (
	DomainTopology   Domain = "geo.plates.topology"
	DomainKinematics Domain = "geo.plates.kinematics"
)

// StreamIdentity is the opaque namespace tuple that identifies a single
// event stream: (variant, branch, level, domain, model).
type StreamIdentity struct {
	Variant string
	Branch  string
	Level   uint32
	Domain  Domain
	Model   string
}

// ToStreamKey is a total, injective serialization of the stream identity,
// used as the storage-key prefix for every record belonging to this
// stream. The format matches spec section 6:
// "S:{variant}:{branch}:L{level}:{domain}:M{model}:".
func (s StreamIdentity) ToStreamKey() []byte {
	return []byte(fmt.Sprintf("S:%s:%s:L%d:%s:M%s:", s.Variant, s.Branch, s.Level, s.Domain, s.Model))
}

func (s StreamIdentity) String() string { return string(s.ToStreamKey()) }

// IsZero reports whether s is the zero-value identity, which is never a
// valid stream to operate on.
func (s StreamIdentity) IsZero() bool { return s == StreamIdentity{} }
