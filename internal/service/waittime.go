package service

import "hawker-order-service/internal/models"

// CalculateWaitingTime estimates the wait in minutes for stallName from the
// outstanding item counts in stallCounts.
func CalculateWaitingTime(stallName string, stallCounts []models.StallOrderCount) int {
	for _, stall := range stallCounts {
		if stall.StallName != stallName {
			continue
		}
		if estimate := int(stall.TotalItems) * models.MinutesPerItem; estimate > models.MinWaitMinutes {
			return estimate
		}
		return models.MinWaitMinutes
	}
	return models.MinWaitMinutes
}
