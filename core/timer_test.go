package core

import (
	"math"
	"testing"
)

func withCoreClock(t *testing.T, freq uint32) {
	t.Helper()
	old := SystemCoreClock()
	setSystemCoreClock(freq)
	t.Cleanup(func() { setSystemCoreClock(old) })
}

func TestTimerConversions(t *testing.T) {
	withCoreClock(t, 600000000)

	testCases := []struct {
		us    uint32
		ticks uint32
	}{
		{0, 0},
		{1, 600},
		{1000, 600000},
		{7000000, 4200000000},
	}

	for _, tc := range testCases {
		if got := TimerFromUS(tc.us); got != tc.ticks {
			t.Errorf("TimerFromUS(%d) = %d, want %d", tc.us, got, tc.ticks)
		}
		if got := TimerToUS(tc.ticks); got != tc.us {
			t.Errorf("TimerToUS(%d) = %d, want %d", tc.ticks, got, tc.us)
		}
	}
}

func TestTimerFromUSSaturates(t *testing.T) {
	withCoreClock(t, 600000000)

	// 7158278us is the last interval that fits at 600MHz
	if got := TimerFromUS(7158278); got != 4294966800 {
		t.Errorf("TimerFromUS(7158278) = %d, want 4294966800", got)
	}
	for _, us := range []uint32{7158279, 8000000, math.MaxUint32} {
		if got := TimerFromUS(us); got != math.MaxUint32 {
			t.Errorf("TimerFromUS(%d) = %d, want saturation", us, got)
		}
	}
}

func TestTimerToUSZeroClock(t *testing.T) {
	withCoreClock(t, 0)
	if got := TimerToUS(1000); got != 0 {
		t.Errorf("TimerToUS with invalid clock = %d, want 0", got)
	}
}

func TestCyclesFromNS(t *testing.T) {
	withCoreClock(t, 64000000)

	// 15.625ns per cycle
	testCases := []struct {
		ns     uint32
		cycles uint32
	}{
		{0, 0},
		{1, 1},
		{15, 1},
		{16, 2},
		{1000, 64},
	}
	for _, tc := range testCases {
		if got := CyclesFromNS(tc.ns); got != tc.cycles {
			t.Errorf("CyclesFromNS(%d) = %d, want %d", tc.ns, got, tc.cycles)
		}
	}
}

func TestBaudDivisor(t *testing.T) {
	withCoreClock(t, 64000000)

	testCases := []struct {
		baud    uint32
		divisor uint32
	}{
		{115200, 556}, // 555.56 rounds up
		{250000, 256},
		{9600, 6667},
		{0, 0},
	}
	for _, tc := range testCases {
		if got := BaudDivisor(tc.baud); got != tc.divisor {
			t.Errorf("BaudDivisor(%d) = %d, want %d", tc.baud, got, tc.divisor)
		}
	}
}

func TestSysTickReload(t *testing.T) {
	withCoreClock(t, 600000000)

	if got := SysTickReload(1000); got != 599999 {
		t.Errorf("SysTickReload(1000) = %d, want 599999", got)
	}
	// 600MHz / 10Hz does not fit in 24 bits
	if got := SysTickReload(10); got != sysTickReloadMax {
		t.Errorf("SysTickReload(10) = %d, want clamp to %d", got, sysTickReloadMax)
	}
	if got := SysTickReload(0); got != 0 {
		t.Errorf("SysTickReload(0) = %d, want 0", got)
	}
}
