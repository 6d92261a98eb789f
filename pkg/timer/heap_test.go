package timer

import (
	"testing"
	"time"

	"github.com/borgmon/remindkeeper/pkg/models"
)

func key(id string) models.AlarmKey {
	return models.AlarmKey{EventID: id, Kind: models.FinalReminder}
}

func TestHeapPushPopOrdering(t *testing.T) {
	h := &alarmHeap{}
	base := time.Date(2025, time.May, 5, 10, 0, 0, 0, time.UTC)

	heapPush(h, Registration{Key: key("c"), FireTime: base.Add(3 * time.Hour)})
	heapPush(h, Registration{Key: key("a"), FireTime: base.Add(1 * time.Hour)})
	heapPush(h, Registration{Key: key("b"), FireTime: base.Add(2 * time.Hour)})

	for _, want := range []string{"a", "b", "c"} {
		if got := heapPop(h); got.Key.EventID != want {
			t.Fatalf("expected %s, got %s", want, got.Key.EventID)
		}
	}
}

func TestHeapRemoveByKey(t *testing.T) {
	h := &alarmHeap{}
	base := time.Date(2025, time.May, 5, 10, 0, 0, 0, time.UTC)

	heapPush(h, Registration{Key: key("a"), FireTime: base.Add(time.Hour)})
	heapPush(h, Registration{Key: key("b"), FireTime: base.Add(2 * time.Hour)})
	heapPush(h, Registration{Key: key("c"), FireTime: base.Add(3 * time.Hour)})

	if !heapRemoveByKey(h, key("b")) {
		t.Fatal("expected removal to succeed")
	}
	if heapRemoveByKey(h, key("missing")) {
		t.Fatal("expected removal of unknown key to fail")
	}
	if h.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", h.Len())
	}
	if got := heapPop(h); got.Key.EventID != "a" {
		t.Fatalf("expected a, got %s", got.Key.EventID)
	}
	if got := heapPop(h); got.Key.EventID != "c" {
		t.Fatalf("expected c, got %s", got.Key.EventID)
	}
}

func TestHeapKeysDistinguishKinds(t *testing.T) {
	h := &alarmHeap{}
	now := time.Now()
	heapPush(h, Registration{Key: models.AlarmKey{EventID: "e", Kind: models.Original(0)}, FireTime: now})
	heapPush(h, Registration{Key: models.AlarmKey{EventID: "e", Kind: models.Original(1)}, FireTime: now})

	if !heapRemoveByKey(h, models.AlarmKey{EventID: "e", Kind: models.Original(1)}) {
		t.Fatal("expected removal of original[1]")
	}
	if got := heapPop(h); got.Key.Kind != models.Original(0) {
		t.Fatalf("wrong entry left: %v", got.Key)
	}
}
