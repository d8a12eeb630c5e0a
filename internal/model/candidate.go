package model

// Candidate is a single detector finding before reconciliation against the
// conflict store. Candidates carry no lifecycle state; the same graph
// snapshot always yields the same candidate set.
type Candidate struct {
	NetworkID string       `json:"network_id"`
	Type      ConflictType `json:"conflict_type"`
	Severity  Severity     `json:"severity"`
	NodeAID   string       `json:"node_a_id"`
	NodeBID   string       `json:"node_b_id,omitempty"`
	Members   []string     `json:"members,omitempty"`
	Detail    string       `json:"detail,omitempty"`
}

// Fingerprint returns the candidate's dedup identity.
func (c Candidate) Fingerprint() Fingerprint {
	return Fingerprint{
		NetworkID: c.NetworkID,
		Type:      c.Type,
		NodeA:     c.NodeAID,
		NodeB:     c.NodeBID,
	}
}
