package dto

import "time"

const EventRecommendationApplied = "RecommendationApplied"

type RecommendationAppliedEvent struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	Payload   AppliedPayload `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

type AppliedPayload struct {
	ApplyResult
	AppliedBy string `json:"applied_by"`
}
