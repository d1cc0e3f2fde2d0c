// Package mailer delivers password-reset notifications over SMTP.
//
// The SMTP mailer satisfies the authgate.Mailer contract: Queue hands the
// notification to a background worker and returns immediately. Delivery
// failures are logged and counted, never surfaced to the enqueueing request;
// a reset token stays valid whether or not its email arrives.
package mailer
