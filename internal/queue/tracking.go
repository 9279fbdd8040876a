package queue

import (
	"time"

	"github.com/washtrack/api/internal/enum"
)

// Stage is one step of the customer-facing progress tracker.
type Stage struct {
	Title     string     `json:"title"`
	Completed bool       `json:"completed"`
	Date      *time.Time `json:"date,omitempty"`
}

var stageTitles = [4]string{
	"Order Received",
	"Processing your Order",
	"Ready for Pickup",
	"Picked Up",
}

var completedStages = map[string]int{
	enum.OrderStatusPending:    0,
	enum.OrderStatusProcessing: 2,
	enum.OrderStatusReady:      3,
	enum.OrderStatusCompleted:  4,
	enum.OrderStatusCancelled:  0,
}

// TrackingStages returns the four tracker stages for an order in status.
// Completed stages carry the order date.
func TrackingStages(status string, orderDate time.Time) []Stage {
	done := completedStages[status]
	stages := make([]Stage, len(stageTitles))
	for i, title := range stageTitles {
		stages[i] = Stage{Title: title, Completed: i < done}
		if stages[i].Completed {
			d := orderDate
			stages[i].Date = &d
		}
	}
	return stages
}
