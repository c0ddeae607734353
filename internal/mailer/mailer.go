// Package mailer is the outbound email provider boundary.
package mailer

// Message is one fully rendered email ready for delivery.
type Message struct {
	From     string
	FromName string
	To       string
	ToName   string
	Subject  string
	HTML     string
	Text     string
}
