package core

// EmailTemplate names a message layout known to the mailer
type EmailTemplate string

const (
	TemplateVerification  EmailTemplate = "email_verification"
	TemplateResetPassword EmailTemplate = "reset_password"
)

// Email is a request to deliver one templated message
type Email struct {
	Template  EmailTemplate     `json:"template"`
	Recipient string            `json:"recipient"`
	Variables map[string]string `json:"variables"`
}
