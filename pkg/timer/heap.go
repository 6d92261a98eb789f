package timer

import (
	"container/heap"

	"github.com/borgmon/remindkeeper/pkg/models"
)

// alarmHeap implements container/heap.Interface for Registration,
// sorted by FireTime (earliest first).
type alarmHeap []Registration

func (h alarmHeap) Len() int           { return len(h) }
func (h alarmHeap) Less(i, j int) bool { return h[i].FireTime.Before(h[j].FireTime) }
func (h alarmHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *alarmHeap) Push(x any) {
	*h = append(*h, x.(Registration))
}

func (h *alarmHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func heapPush(h *alarmHeap, r Registration) {
	heap.Push(h, r)
}

// heapPop removes and returns the earliest registration. Panics if the heap is empty.
func heapPop(h *alarmHeap) Registration {
	return heap.Pop(h).(Registration)
}

// heapRemoveByKey removes the registration with key and reports whether it was found
func heapRemoveByKey(h *alarmHeap, key models.AlarmKey) bool {
	for i, r := range *h {
		if r.Key == key {
			heap.Remove(h, i)
			return true
		}
	}
	return false
}
