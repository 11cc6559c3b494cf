package core

// Timer is a scheduled event, due once the cycle counter reaches WakeTime
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

// Handler results
const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

var timerList *Timer

// TimerIsBefore reports whether cycle count a comes before b, across counter wraparound
func TimerIsBefore(a, b uint32) bool {
	return int32(a-b) < 0
}

// ScheduleTimer adds a timer to the schedule
func ScheduleTimer(t *Timer) {
	withInterruptsMasked(func() {
		insertTimer(t)
	})
}

// insertTimer inserts a timer in sorted order by WakeTime.
// Timers with equal WakeTime run in the order they were added.
func insertTimer(t *Timer) {
	if timerList == nil || TimerIsBefore(t.WakeTime, timerList.WakeTime) {
		t.Next = timerList
		timerList = t
		return
	}

	current := timerList
	for current.Next != nil && !TimerIsBefore(t.WakeTime, current.Next.WakeTime) {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// popDueTimer unlinks the head timer if it is due at now
func popDueTimer(now uint32) *Timer {
	var due *Timer
	withInterruptsMasked(func() {
		if timerList != nil && !TimerIsBefore(now, timerList.WakeTime) {
			due = timerList
			timerList = due.Next
			due.Next = nil
		}
	})
	return due
}

// TimerDispatch runs every timer due at cycle count now.
// Handlers run with interrupts enabled and may reschedule themselves by
// advancing WakeTime and returning SF_RESCHEDULE.
func TimerDispatch(now uint32) {
	for {
		timer := popDueTimer(now)
		if timer == nil {
			return
		}
		if timer.Handler(timer) == SF_RESCHEDULE {
			ScheduleTimer(timer)
		}
	}
}
