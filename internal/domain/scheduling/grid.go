package scheduling

import (
	"time"

	"github.com/google/uuid"
)

const slotLength = 30 * time.Minute

// dayWindows are the bookable periods of a lab day, as minutes after
// midnight: 09:00-12:00 and 13:30-17:00.
var dayWindows = [][2]int{
	{9 * 60, 12 * 60},
	{13*60 + 30, 17 * 60},
}

// Grid returns the slots of one lab staff member for the calendar day of
// date in loc, ordered by start time.
func Grid(labStaffID uuid.UUID, date time.Time, loc *time.Location) []*Slot {
	y, m, d := date.In(loc).Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)

	var out []*Slot
	for _, w := range dayWindows {
		for min := w[0]; min+int(slotLength/time.Minute) <= w[1]; min += int(slotLength / time.Minute) {
			start := midnight.Add(time.Duration(min) * time.Minute)
			out = append(out, &Slot{
				ID:         uuid.New(),
				LabStaffID: labStaffID,
				StartTime:  start.UTC(),
				EndTime:    start.Add(slotLength).UTC(),
				Available:  true,
			})
		}
	}
	return out
}
