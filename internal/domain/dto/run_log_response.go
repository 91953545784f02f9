package dto

import "github.com/fundpulse/rollupd/internal/domain/models"

// RunLogEntryResponse is one persisted execution summary as returned by
// GET /api/v1/rollups/runs.
type RunLogEntryResponse struct {
	ID        int64                `json:"id" example:"42"`
	Status    string               `json:"status" example:"ok"`
	Reason    string               `json:"reason,omitempty"`
	Processed int                  `json:"processed" example:"3"`
	Updated   int                  `json:"updated" example:"3"`
	TookMs    int64                `json:"tookMs" example:"1250"`
	Details   []models.SummaryItem `json:"details,omitempty"`
}
