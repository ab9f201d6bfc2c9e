package oracle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var chanTimeout = time.Millisecond * 100

func TestStreamingManager(t *testing.T) {
	m := streamingManager{}
	l1 := m.newListener()
	l2 := m.newListener()

	go m.notify(&FeedEvent{Type: EventSubmitted, Index: 1})
	for _, l := range []chan *FeedEvent{l1, l2} {
		select {
		case ev := <-l:
			require.Equal(t, EventSubmitted, ev.Type)
			require.Equal(t, uint64(1), ev.Index)
		case <-time.After(chanTimeout):
			t.Fatal("no event on listener")
		}
	}

	m.stopListener(l1)
	select {
	case _, ok := <-l1:
		require.False(t, ok)
	case <-time.After(chanTimeout):
		t.Fatal("listener channel not closed")
	}

	// The remaining listener still gets notified.
	go m.notify(&FeedEvent{Type: EventDecrypted, Index: 2})
	select {
	case ev := <-l2:
		require.Equal(t, EventDecrypted, ev.Type)
		require.Equal(t, uint64(2), ev.Index)
	case <-time.After(chanTimeout):
		t.Fatal("no event on remaining listener")
	}
	m.stopListener(l2)
}
