package data

import "encoding/json"

// MetadataRecord is one entry of the metadata index.
// (Namespace, RecordID) is unique within a table.
type MetadataRecord struct {
	Namespace string          `json:"-"`
	RecordID  string          `json:"cid"`
	Payload   json.RawMessage `json:"data"`
}

// MutationRequest inserts Record and prunes the records it supersedes.
type MutationRequest struct {
	Namespace  string
	Record     *MetadataRecord
	Superseded []string
}

// MutationResult reports what happened to each superseded record.
type MutationResult struct {
	RecordID string `json:"cid"`
	// Pruned holds superseded ids that were deleted.
	Pruned []string `json:"pruned,omitempty"`
	// Missing holds superseded ids that were already absent.
	Missing []string `json:"missing,omitempty"`
	// Pending holds superseded ids whose deletion failed and still need pruning.
	Pending []string `json:"pending,omitempty"`
}
