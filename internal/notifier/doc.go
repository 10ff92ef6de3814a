// Package notifier delivers rendered bulletin digests.
//
// SMTPNotifier mails the digest to a single recipient over an authenticated,
// TLS-protected SMTP connection. DryRunNotifier writes the digest to a writer
// instead, for previewing runs without sending anything.
package notifier
