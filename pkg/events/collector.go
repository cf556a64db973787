package events

import "slices"

// EventCollector is embedded in aggregates to buffer the domain events raised
// while they are built. The owner drains the buffer once the aggregate is saved.
type EventCollector struct {
	pending []DomainEvent
}

// Record appends events to the buffer.
func (c *EventCollector) Record(evts ...DomainEvent) {
	c.pending = append(c.pending, evts...)
}

// Events returns a copy of the buffered events.
func (c *EventCollector) Events() []DomainEvent {
	return slices.Clone(c.pending)
}

// ClearEvents returns the buffered events and empties the buffer.
func (c *EventCollector) ClearEvents() []DomainEvent {
	drained := c.pending
	c.pending = nil
	return drained
}
