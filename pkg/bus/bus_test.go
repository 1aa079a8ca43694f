package bus

import "testing"

func TestFeedFanOut(t *testing.T) {
	var feed Feed[int]

	var a, b []int
	cancelA := feed.Subscribe(func(v int) { a = append(a, v) })
	cancelB := feed.Subscribe(func(v int) { b = append(b, v) })

	feed.Publish(1)
	feed.Publish(2)

	if len(a) != 2 || len(b) != 2 {
		t.Fatalf("expected both subscribers to see 2 events, got %d and %d", len(a), len(b))
	}

	cancelA()
	feed.Publish(3)

	if len(a) != 2 {
		t.Errorf("cancelled subscriber received event: %v", a)
	}
	if len(b) != 3 {
		t.Errorf("active subscriber missed event: %v", b)
	}
	cancelB()

	if feed.Len() != 0 {
		t.Errorf("expected 0 subscribers, got %d", feed.Len())
	}
}

func TestFeedSecondSubscriberDoesNotReplaceFirst(t *testing.T) {
	var feed Feed[string]

	var first, second int
	feed.Subscribe(func(string) { first++ })
	feed.Subscribe(func(string) { second++ })

	feed.Publish("hello")

	if first != 1 || second != 1 {
		t.Errorf("expected both handlers to fire once, got %d and %d", first, second)
	}
}

func TestFeedCancelTwice(t *testing.T) {
	var feed Feed[int]
	cancel := feed.Subscribe(func(int) {})
	cancel()
	cancel() // must not panic
}

func TestFeedPublishNoSubscribers(t *testing.T) {
	var feed Feed[int]
	feed.Publish(42) // must not panic
}
