package domain

// Ownership maps a container to at most one owning account. Owner is empty
// for a row that exists but has not been claimed yet; once set it never
// changes (there is no release or transfer operation).
type Ownership struct {
	ContainerName string
	Owner         string
}

// Claimed reports whether the container has an owner.
func (o *Ownership) Claimed() bool {
	return o.Owner != ""
}
