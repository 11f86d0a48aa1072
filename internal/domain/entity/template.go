package entity

// EmailTemplate is a static content descriptor. Rendering happens on the
// provider side (Mailgun stored templates), the engine only routes by ID
// and validates that declared variables are supplied.
type EmailTemplate struct {
	ID        string
	Subject   string
	Category  EmailCategory
	Variables []string
	Tags      []string
}
