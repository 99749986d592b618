package catalog

// Resolve returns the document the requested id refers to, searching public
// documents first and then private ones. An id that matches nothing resolves
// to the first public document.
func Resolve(requestedID string, snap Snapshot) Document {
	if requestedID != "" {
		for _, d := range snap.All() {
			if d.ID == requestedID {
				return d
			}
		}
	}
	if len(snap.Public) > 0 {
		return snap.Public[0]
	}
	// Only reachable with a hand-built snapshot.
	if len(snap.Private) > 0 {
		return snap.Private[0]
	}
	return Document{}
}
