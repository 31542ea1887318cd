package dto

import "time"

type LogFilters struct {
	ProductID string
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	PageSize  int
}
