package models

import "time"

// MaintenanceState classifies the upcoming maintenance date.
type MaintenanceState string

const (
	MaintenanceInvalid   MaintenanceState = "invalid"
	MaintenanceOverdue   MaintenanceState = "overdue"
	MaintenanceDueSoon   MaintenanceState = "due-soon"
	MaintenanceScheduled MaintenanceState = "scheduled"
)

// MaintenanceDueSoonDays is the window in which maintenance counts as due soon.
const MaintenanceDueSoonDays = 10

// MaintenanceStatus describes how far away the upcoming maintenance is.
type MaintenanceStatus struct {
	State         MaintenanceState `json:"state"`
	DaysRemaining int              `json:"days_remaining"`
	Due           *time.Time       `json:"due,omitempty"`
}

// EvaluateMaintenance classifies the raw upcoming maintenance date against today.
// DaysRemaining is negative when overdue.
func EvaluateMaintenance(upcoming string, today time.Time, loc *time.Location) MaintenanceStatus {
	due, err := ParseDate(upcoming, loc)
	if err != nil {
		return MaintenanceStatus{State: MaintenanceInvalid}
	}

	days := DaysBetween(CalendarDay(today), due)
	status := MaintenanceStatus{DaysRemaining: days, Due: &due}
	switch {
	case days < 0:
		status.State = MaintenanceOverdue
	case days < MaintenanceDueSoonDays:
		status.State = MaintenanceDueSoon
	default:
		status.State = MaintenanceScheduled
	}
	return status
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	a = CalendarDay(a)
	b = CalendarDay(b)
	return int(b.Sub(a).Hours() / 24)
}
