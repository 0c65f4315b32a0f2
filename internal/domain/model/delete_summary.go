package model

// DeleteSummary reports the storage outcome of a video deletion so callers
// can reconcile orphaned objects.
type DeleteSummary struct {
	VideoID          string         `json:"video_id"`
	Attempted        int            `json:"attempted"`
	Deleted          int            `json:"deleted"`
	Failed           int            `json:"failed"`
	Skipped          int            `json:"skipped"`
	Objects          []ObjectResult `json:"objects"`
	Errors           []string       `json:"errors,omitempty"`
	CleanupScheduled bool           `json:"cleanup_scheduled"`
}

// ObjectResult is the outcome for a single stored object.
type ObjectResult struct {
	URL     string `json:"url"`
	Key     string `json:"key,omitempty"`
	Deleted bool   `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

// FailedKeys returns the keys whose deletion was attempted and failed.
func (s *DeleteSummary) FailedKeys() []string {
	var keys []string
	for _, o := range s.Objects {
		if o.Key != "" && !o.Deleted && o.Error != "" {
			keys = append(keys, o.Key)
		}
	}
	return keys
}
