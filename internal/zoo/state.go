package zoo

// State is a step of model resolution.
type State int

// Resolution states, in order.
const (
	Unresolved State = iota
	EngineSelected
	ArtifactResolved
	Loaded
	Ready
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case EngineSelected:
		return "engine-selected"
	case ArtifactResolved:
		return "artifact-resolved"
	case Loaded:
		return "loaded"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}
