package events

type Publisher interface {
	Publish(ev Event)
}

// Fanout forwards each event to every publisher in order.
type Fanout []Publisher

func (f Fanout) Publish(ev Event) {
	for _, p := range f {
		if p != nil {
			p.Publish(ev)
		}
	}
}
