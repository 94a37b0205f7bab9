// Package email is a capability interface: a real SMTP provider and a
// no-op provider selected at startup. Core components never check
// whether mail is configured.
package email

type Provider interface {
	Send(to, subject, body string) error
}

// NoopProvider drops all mail. Used when email is disabled.
type NoopProvider struct{}

func (NoopProvider) Send(string, string, string) error { return nil }
