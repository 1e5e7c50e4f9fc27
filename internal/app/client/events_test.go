package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubject_DeliversInRegistrationOrder(t *testing.T) {
	subject := NewSubject()
	var order []int

	subject.Subscribe("status-change", func(any) { order = append(order, 1) })
	subject.Subscribe("status-change", func(any) { order = append(order, 2) })

	subject.emit("status-change", StatusSyncing)

	assert.Equal(t, []int{1, 2}, order)
}

func TestSubject_UnsubscribeStopsDelivery(t *testing.T) {
	subject := NewSubject()
	calls := 0

	unsubscribe := subject.Subscribe("blocks-updated", func(any) { calls++ })
	subject.emit("blocks-updated", []Block{{ID: "b1"}})
	unsubscribe()
	subject.emit("blocks-updated", []Block{{ID: "b2"}})

	assert.Equal(t, 1, calls)
}

func TestSubject_OnlyMatchingEventDelivered(t *testing.T) {
	subject := NewSubject()
	var got any

	subject.Subscribe("settings-updated", func(payload any) { got = payload })
	subject.emit("conflict-detected", Conflict{ID: "c1"})

	assert.Nil(t, got)
}

func TestApp_SaveBlockEmitsBlocksUpdated(t *testing.T) {
	app := newTestApp(t)

	var received []Block
	app.Subscribe(EventBlocksUpdated, func(payload any) {
		received = payload.([]Block)
	})

	if err := app.SaveBlock(Block{ID: "b1", Text: "hello"}); err != nil {
		t.Fatalf("save block: %v", err)
	}

	assert.Len(t, received, 1)
	assert.Equal(t, "b1", received[0].ID)
	assert.Equal(t, StatusPending, received[0].SyncStatus)
}
