package robotis

import (
	"errors"
	"sync"
)

type RequestStats struct {
	mu  sync.Mutex
	Num StatsNum
}

type StatsNum struct {
	All         int
	Invalid     int
	Timeout     int
	DeviceError int
	Other       int
}

// Snapshot returns a copy of the counters.
func (st *RequestStats) Snapshot() StatsNum {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.Num
}

func (n StatsNum) Percentage(num int) float64 {
	if n.All == 0 {
		return 0
	}
	return 100 * float64(num) / float64(n.All)
}

func (st *RequestStats) Update(err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.Num.All++
	if err != nil {
		if _, ok := IsDeviceError(err); ok {
			st.Num.DeviceError++
		} else if MsgInvalid(err) {
			st.Num.Invalid++
		} else if errors.Is(err, ErrTimeout) {
			st.Num.Timeout++
		} else {
			st.Num.Other++
		}
	}
}
