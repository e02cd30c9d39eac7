package app

// ApplyResult reports what a batch of raw actions did to a kit.
type ApplyResult struct {
	KitID    string   `json:"kitId"`
	Applied  int      `json:"applied"`
	Rejected []string `json:"rejected,omitempty"`
	Version  uint64   `json:"version"`
}

// SnapshotView is the listing form of a snapshot.
type SnapshotView struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	CreatedAt string `json:"createdAt"`
}
