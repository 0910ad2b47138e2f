package domain

// Assurance records how an Identity was established.
type Assurance string

const (
	// AssuranceVerified means the identity provider confirmed the token.
	AssuranceVerified Assurance = "verified"
	// AssuranceDegraded means token claims were decoded locally without a
	// signature check while the identity provider was unreachable.
	AssuranceDegraded Assurance = "degraded"
)

// Identity is the caller extracted from a bearer credential. It is rebuilt on
// every request and never persisted.
type Identity struct {
	SubjectID string
	Email     string
	Claims    map[string]any
	Assurance Assurance
}

// Degraded reports whether the identity was accepted at reduced assurance.
func (i Identity) Degraded() bool {
	return i.Assurance == AssuranceDegraded
}
