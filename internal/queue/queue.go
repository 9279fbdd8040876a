// Package queue orders and partitions laundry orders for the dashboards:
// the FIFO work queue, recently finished orders, and the archive.
package queue

import (
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/washtrack/api/internal/database"
	"github.com/washtrack/api/internal/enum"
)

// ArchiveAfter is how long a Completed or Cancelled order stays visible in
// the default views, measured from its order date.
const ArchiveAfter = 24 * time.Hour

const day = 24 * time.Hour

// ArchiveAge selects a window of the archive by time since order date.
type ArchiveAge string

const (
	ArchiveAll        ArchiveAge = "all"
	ArchiveLast7Days  ArchiveAge = "last7days"
	ArchiveLast30Days ArchiveAge = "last30days"
	ArchiveLast90Days ArchiveAge = "last90days"
	ArchiveOlder      ArchiveAge = "older"
)

var ErrInvalidArchiveAge = errors.New("invalid archive age filter")

// Board is the three-way split of orders shown to admins and customers.
type Board struct {
	Active   []database.OrderDetail `json:"active"`
	Finished []database.OrderDetail `json:"finished"`
	Archived []database.OrderDetail `json:"archived"`
}

// SortFIFO returns a copy of orders sorted by order date, then by ID.
func SortFIFO(orders []database.OrderDetail) []database.OrderDetail {
	sorted := slices.Clone(orders)
	slices.SortStableFunc(sorted, compareFIFO)
	return sorted
}

func compareFIFO(a, b database.OrderDetail) int {
	if c := a.OrderDate.Compare(b.OrderDate); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

// IsTerminal reports whether status is Completed or Cancelled.
func IsTerminal(status string) bool {
	return status == enum.OrderStatusCompleted || status == enum.OrderStatusCancelled
}

// IsArchived reports whether a terminal order is older than ArchiveAfter.
func IsArchived(o database.OrderDetail, now time.Time) bool {
	return IsTerminal(o.Status) && now.Sub(o.OrderDate) > ArchiveAfter
}

// Partition splits orders into the active FIFO queue and the finished and
// archived lists, both most recent first.
func Partition(orders []database.OrderDetail, now time.Time) Board {
	b := Board{
		Active:   []database.OrderDetail{},
		Finished: []database.OrderDetail{},
		Archived: []database.OrderDetail{},
	}
	for _, o := range SortFIFO(orders) {
		switch {
		case !IsTerminal(o.Status):
			b.Active = append(b.Active, o)
		case IsArchived(o, now):
			b.Archived = append(b.Archived, o)
		default:
			b.Finished = append(b.Finished, o)
		}
	}
	slices.Reverse(b.Finished)
	slices.Reverse(b.Archived)
	return b
}

// ParseArchiveAge parses an archive filter. An empty string means all.
func ParseArchiveAge(s string) (ArchiveAge, error) {
	switch ArchiveAge(s) {
	case "":
		return ArchiveAll, nil
	case ArchiveAll, ArchiveLast7Days, ArchiveLast30Days, ArchiveLast90Days, ArchiveOlder:
		return ArchiveAge(s), nil
	}
	return "", ErrInvalidArchiveAge
}

func (a ArchiveAge) matches(age time.Duration) bool {
	switch a {
	case ArchiveLast7Days:
		return age <= 7*day
	case ArchiveLast30Days:
		return age <= 30*day
	case ArchiveLast90Days:
		return age <= 90*day
	case ArchiveOlder:
		return age > 90*day
	}
	return true
}

// FilterArchived keeps the archived orders that fall in the age window and
// contain search (case-insensitive) in their ID, customer username, service
// name or items. The result is most recent first.
func FilterArchived(orders []database.OrderDetail, age ArchiveAge, search string, now time.Time) []database.OrderDetail {
	search = strings.ToLower(strings.TrimSpace(search))
	result := []database.OrderDetail{}
	for _, o := range SortFIFO(orders) {
		if !IsArchived(o, now) {
			continue
		}
		if !age.matches(now.Sub(o.OrderDate)) {
			continue
		}
		if search != "" && !matchesSearch(o, search) {
			continue
		}
		result = append(result, o)
	}
	slices.Reverse(result)
	return result
}

func matchesSearch(o database.OrderDetail, search string) bool {
	for _, field := range []string{
		strconv.FormatInt(o.ID, 10),
		o.Username,
		o.ServiceName,
		o.Items,
	} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}
