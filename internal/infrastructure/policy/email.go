package policy

import (
	"fmt"
	"net/mail"
	"strings"
)

// EmailPolicy validates email syntax and an optional domain allow list. An
// empty allow list permits every domain.
type EmailPolicy struct {
	allowedDomains []string
}

func NewEmailPolicy(allowedDomains []string) *EmailPolicy {
	domains := make([]string, 0, len(allowedDomains))
	for _, domain := range allowedDomains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain != "" {
			domains = append(domains, domain)
		}
	}
	return &EmailPolicy{allowedDomains: domains}
}

func (p *EmailPolicy) IsValid(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func (p *EmailPolicy) Disallowed(email string) string {
	if len(p.allowedDomains) == 0 {
		return ""
	}

	at := strings.LastIndex(email, "@")
	if at < 0 {
		return "email has no domain"
	}

	domain := strings.ToLower(email[at+1:])
	for _, allowed := range p.allowedDomains {
		if domain == allowed {
			return ""
		}
	}

	return fmt.Sprintf("email domain %s is not allowed", domain)
}
