package ws

import (
	"log"

	"microgrid/internal/model"
	"microgrid/internal/trading"
)

// Recommender produces the current trading recommendation. Satisfied by
// *trading.Engine.
type Recommender interface {
	Recommend() (trading.Recommendation, error)
}

// Bridge implements simulator.Callback and faults.Notifier, broadcasting
// events to the WebSocket hub. With a Recommender attached it also pushes
// a fresh recommendation after every reading.
type Bridge struct {
	hub         *Hub
	recommender Recommender
}

func NewBridge(hub *Hub) *Bridge {
	return &Bridge{hub: hub}
}

// SetRecommender enables recommendation pushes alongside readings.
func (b *Bridge) SetRecommender(r Recommender) {
	b.recommender = r
}

func (b *Bridge) OnReading(r model.Reading) {
	msg, err := NewEnvelope(TypeReading, ReadingFromModel(r))
	if err != nil {
		log.Printf("Error marshaling reading: %v", err)
		return
	}
	b.hub.Broadcast(msg)

	if b.recommender == nil {
		return
	}
	rec, err := b.recommender.Recommend()
	if err != nil {
		log.Printf("Error computing recommendation: %v", err)
		return
	}
	b.BroadcastRecommendation(rec)
}

func (b *Bridge) OnAlert(a model.Alert) {
	msg, err := NewEnvelope(TypeAlert, AlertFromModel(a))
	if err != nil {
		log.Printf("Error marshaling alert: %v", err)
		return
	}
	b.hub.Broadcast(msg)
}

func (b *Bridge) BroadcastRecommendation(rec trading.Recommendation) {
	msg, err := NewEnvelope(TypeRecommendation, rec)
	if err != nil {
		log.Printf("Error marshaling recommendation: %v", err)
		return
	}
	b.hub.Broadcast(msg)
}
