package reconcile

// EditKind names the gesture a local record is under.
type EditKind int

const (
	// EditNone means the record is not being edited.
	EditNone EditKind = iota
	Dragging
	Resizing
	EditingText
	Creating
)

var editKindNames = map[EditKind]string{
	EditNone:    "none",
	Dragging:    "dragging",
	Resizing:    "resizing",
	EditingText: "editing_text",
	Creating:    "creating",
}

func (k EditKind) String() string {
	if s, ok := editKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseEditKind converts the String form back to an EditKind.
func ParseEditKind(s string) (EditKind, bool) {
	for k, name := range editKindNames {
		if name == s {
			return k, true
		}
	}
	return EditNone, false
}

// EditContext names the local records under direct manipulation. It is
// ephemeral per-client state and never persisted or sent to peers.
type EditContext map[string]EditKind

// Protects reports whether the local copy of id must win regardless of
// version.
func (e EditContext) Protects(id string) bool {
	k, ok := e[id]
	return ok && k != EditNone
}

// Clone returns an independent copy.
func (e EditContext) Clone() EditContext {
	if e == nil {
		return nil
	}
	out := make(EditContext, len(e))
	for id, k := range e {
		out[id] = k
	}
	return out
}
