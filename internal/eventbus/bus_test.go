package eventbus

import (
	"testing"
	"time"
)

func TestPublishOrderAndUnsubscribe(t *testing.T) {
	t.Parallel()
	b := New()
	var got []string
	unsubA := b.Subscribe(func(e Event) { got = append(got, "a:"+e.Type) })
	b.Subscribe(func(e Event) { got = append(got, "b:"+e.Type) })

	b.Publish(Event{Type: TaskStarted})
	unsubA()
	unsubA()
	b.Publish(Event{Type: TaskFinished})

	want := []string{"a:task.started", "b:task.started", "b:task.finished"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestPublishSurvivesPanickingHandler(t *testing.T) {
	t.Parallel()
	b := New()
	var stamped time.Time
	b.Subscribe(func(Event) { panic("boom") })
	b.Subscribe(func(e Event) { stamped = e.Time })

	b.Publish(Event{Type: TaskRetry})
	if stamped.IsZero() {
		t.Fatal("second handler should still run and see a stamped time")
	}
}
