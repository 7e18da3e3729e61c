package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/roach88/hangup/internal/bus"
	"github.com/roach88/hangup/internal/engine"
)

// eventTopics lists the topics commands print.
var eventTopics = []string{
	engine.TopicAPIReady,
	engine.TopicStateChanged,
	engine.TopicMessageReceived,
	engine.TopicParticipantsAdded,
	engine.TopicParticipantsChanged,
	engine.TopicParticipantsRemoved,
	engine.TopicNoticeDisplayed,
	engine.TopicNoticeDismissed,
	engine.TopicAppVisible,
}

// eventLine is one printed event in JSON output.
type eventLine struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

// eventPrinter writes delivered events, one per line. Handlers may run on
// the loop goroutine, so writes are serialized.
type eventPrinter struct {
	mu     sync.Mutex
	w      io.Writer
	format string
}

// subscribe registers the printer for every event topic on e.
func (p *eventPrinter) subscribe(e *engine.Engine) {
	for _, topic := range eventTopics {
		e.On(topic, p.handle, p)
	}
}

func (p *eventPrinter) handle(ev bus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.format == "json" {
		return json.NewEncoder(p.w).Encode(eventLine{Topic: ev.Topic, Payload: ev.Payload})
	}

	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", ev.Topic, err)
	}
	_, err = fmt.Fprintf(p.w, "%s %s\n", ev.Topic, payload)
	return err
}
