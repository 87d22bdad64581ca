// Package mail delivers account emails carrying one-time token links.
// The auth flow treats delivery as fire-and-forget: a failed send is
// reported, never rolled back into the triggering operation.
package mail

import "context"

// Sender is the outbound mail contract the auth flow needs.
type Sender interface {
	// SendVerification mails the account-confirmation link.
	SendVerification(ctx context.Context, to, username, link string) error

	// SendPasswordReset mails the password-reset confirmation link.
	SendPasswordReset(ctx context.Context, to, username, link string) error
}
