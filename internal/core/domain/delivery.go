package domain

// DeliveryStatus is the outcome of a verification email attempt.
type DeliveryStatus string

const (
	DeliverySent        DeliveryStatus = "sent"
	DeliveryQueued      DeliveryStatus = "queued"
	DeliveryFailed      DeliveryStatus = "failed"
	DeliveryNotRequired DeliveryStatus = "not_required"
)

// VerificationEmail is the rendered-to-be message handed to a Mailer.
type VerificationEmail struct {
	To       string
	FullName string
	Link     string
}
