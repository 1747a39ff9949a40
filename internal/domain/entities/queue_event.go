package entities

import "time"

// QueueEventType identifies what happened to a ticket
type QueueEventType string

const (
	QueueEventTicketCreated   QueueEventType = "ticket.created"
	QueueEventTicketEntered   QueueEventType = "ticket.entered"
	QueueEventTicketExited    QueueEventType = "ticket.exited"
	QueueEventTicketCancelled QueueEventType = "ticket.cancelled"
)

// QueueEvent is published on a shop's channel whenever its queue changes, so
// clients polling their position can refresh immediately instead of waiting
// for the next poll interval.
type QueueEvent struct {
	ID        string         `json:"id"`
	Type      QueueEventType `json:"type"`
	ShopID    int32          `json:"shop_id"`
	TicketID  int32          `json:"ticket_id"`
	Timestamp time.Time      `json:"timestamp"`
}
