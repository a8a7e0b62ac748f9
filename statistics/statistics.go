package statistics

import (
	"fmt"
	"sort"
	"sync"
)

// Keys used by the TE manager.
const (
	Solves        = "solves"
	Infeasible    = "infeasible solves"
	Provisioned   = "provisioned connections"
	Released      = "released connections"
	Rollbacks     = "reservation rollbacks"
	VlanExhausted = "vlan exhaustions"
	Breakdowns    = "failed breakdowns"
)

type statisticsData struct {
	dataMap map[string]int

	mutex sync.Mutex
}

var (
	stats *statisticsData
	once  sync.Once
)

func get() *statisticsData {
	once.Do(Init)
	return stats
}

// Init resets every counter.
func Init() {
	stats = &statisticsData{
		dataMap: make(map[string]int),
	}
}

func Set(key string, value int) {
	s := get()
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.dataMap[key] = value
}

func Change(key string, value int) {
	s := get()
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.dataMap[key] += value
}

func Get(key string) int {
	s := get()
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.dataMap[key]
}

func Snapshot() map[string]int {
	s := get()
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ret := make(map[string]int, len(s.dataMap))
	for key, value := range s.dataMap {
		ret[key] = value
	}

	return ret
}

func Display() string {
	snapshot := Snapshot()

	keys := make([]string, 0, len(snapshot))
	for key := range snapshot {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := "Statistics results are:\n"
	for _, key := range keys {
		result += fmt.Sprintf("Number of %s is %d\n", key, snapshot[key])
	}

	return result
}
