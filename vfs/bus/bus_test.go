package bus

import "testing"

func TestSendToUnregisteredTaskFails(t *testing.T) {
	b := NewBus()
	if status := b.Send(1, Message{Op: "discovery"}); status != SendFailed {
		t.Fatalf("status = %v, want SendFailed", status)
	}
}

func TestSendFillsQueueThenReportsFull(t *testing.T) {
	b := NewBus()
	b.Register(1, 2)

	if status := b.Send(1, Message{Op: "a"}); status != SendSuccessful {
		t.Fatalf("first send = %v", status)
	}
	if status := b.Send(1, Message{Op: "b"}); status != SendSuccessful {
		t.Fatalf("second send = %v", status)
	}
	if status := b.Send(1, Message{Op: "c"}); status != SendQueueFull {
		t.Fatalf("third send = %v, want SendQueueFull", status)
	}
}

func TestUnregisterDropsInbox(t *testing.T) {
	b := NewBus()
	b.Register(1, 1)
	b.Unregister(1)
	if status := b.Send(1, Message{}); status != SendFailed {
		t.Fatalf("status = %v, want SendFailed after unregister", status)
	}
}
