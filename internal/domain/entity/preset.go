package entity

import "time"

// ApprovalLinePreset is a named, reusable approver ordering owned by a user.
// Applying a preset copies its entries into fresh draft lines; there is no live
// reference back to the preset.
type ApprovalLinePreset struct {
	ID        int64                `json:"id"`
	OwnerID   string               `json:"owner_id"`
	Name      string               `json:"name"`
	Entries   []*PresetEntry       `json:"entries"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// PresetEntry is one approver slot in a preset.
type PresetEntry struct {
	ID           int64  `json:"id"`
	PresetID     int64  `json:"preset_id"`
	ApproverID   string `json:"approver_id"`
	Position     int    `json:"position"`
	ApprovalType string `json:"approval_type"`
	DecisionType string `json:"decision_type"`
}
