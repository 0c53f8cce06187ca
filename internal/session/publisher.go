package session

import (
	"github.com/dusk-indust/profilegen/internal/orchestrator"
	"github.com/dusk-indust/profilegen/internal/profile"
)

// Publisher records progress events of one run into a Store.
type Publisher struct {
	store *Store
	id    string
}

// Compile-time check.
var _ orchestrator.Publisher = (*Publisher)(nil)

// NewPublisher returns a Publisher writing to session id in store.
func NewPublisher(store *Store, id string) *Publisher {
	return &Publisher{store: store, id: id}
}

// Publish implements orchestrator.Publisher.
func (p *Publisher) Publish(ev orchestrator.ProgressEvent) {
	snap := SectionSnapshot{
		Name:      ev.SectionName,
		Title:     profile.Humanize(ev.SectionName),
		Status:    ev.Status,
		UpdatedAt: ev.Timestamp,
	}
	if ev.Section != nil {
		snap.Title = ev.Section.Name
		snap.Content = ev.Section.Content
	}
	if ev.Err != nil {
		snap.Error = ev.Err.Error()
	}
	p.store.UpdateSection(p.id, ev.SectionName, snap)
}
