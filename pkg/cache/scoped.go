package cache

// ScopedKeyer wraps a Keyer with a prefix so that several users of one
// backend get separate namespaces, for example the API server and CLI
// sharing a Redis instance:
//
//	apiKeyer := NewScopedKeyer(NewDefaultKeyer(), "api:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// DiagramKey generates a prefixed key for laid-out diagrams.
func (k *ScopedKeyer) DiagramKey(sourceHash string, opts DiagramKeyOpts) string {
	return k.prefix + k.inner.DiagramKey(sourceHash, opts)
}

// ArtifactKey generates a prefixed key for rendered artifacts.
func (k *ScopedKeyer) ArtifactKey(diagramHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(diagramHash, opts)
}
