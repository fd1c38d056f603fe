package model

// Notifier sends an out-of-band notification such as an alert digest email.
type Notifier interface {
	Send(subject, body string) error
}

// Publisher delivers broadcast events to the current observers.
// Publish must never block on a slow observer.
type Publisher interface {
	Publish(event Event)
}
