package oracle

import (
	"sync"
)

// streamingManager fans feed events out to the open subscriptions.
type streamingManager struct {
	sync.Mutex
	listeners []chan *FeedEvent
}

func (s *streamingManager) notify(ev *FeedEvent) {
	s.Lock()
	defer s.Unlock()

	for _, c := range s.listeners {
		c <- ev
	}
}

func (s *streamingManager) newListener() chan *FeedEvent {
	s.Lock()
	defer s.Unlock()

	outChan := make(chan *FeedEvent)
	s.listeners = append(s.listeners, outChan)
	return outChan
}

func (s *streamingManager) stopListener(outChan chan *FeedEvent) {
	s.Lock()
	defer s.Unlock()

	for i, listener := range s.listeners {
		if listener == outChan {
			close(listener)
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

// StreamEvents pushes one FeedEvent per successful submission, decryption
// request or reveal until the client closes the connection.
func (s *Service) StreamEvents(msg *StreamEvents) (chan *FeedEvent, chan bool, error) {
	stopChan := make(chan bool)
	outChan := s.streamingMan.newListener()

	go func() {
		// Closed by onet when the client connection goes away.
		<-stopChan
		s.streamingMan.stopListener(outChan)
	}()
	return outChan, stopChan, nil
}
