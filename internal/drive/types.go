package drive

// FolderCandidate is a folder offered to the classifier as a routing
// destination. Candidates are produced fresh per request and not cached.
type FolderCandidate struct {
	// Name is the folder's display name.
	Name string `json:"name"`

	// ID is the opaque Drive identifier of the folder.
	ID string `json:"id"`
}
