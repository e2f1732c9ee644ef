package service

import (
	"context"
	"net/url"
	"strings"

	"github.com/layer-3/gatekeeper/core"
)

func (s *AuthService) verificationEmail(name, recipient, token string) core.Email {
	link := s.link("/api/auth/verification", token)
	return core.Email{
		Template:  core.TemplateVerification,
		Recipient: recipient,
		Variables: map[string]string{
			"name":              name,
			"verification_link": link,
		},
	}
}

func (s *AuthService) resetPasswordEmail(user *core.User, token string) core.Email {
	link := s.link("/api/user/"+url.PathEscape(user.ID)+"/reset-password", token)
	return core.Email{
		Template:  core.TemplateResetPassword,
		Recipient: user.Email,
		Variables: map[string]string{
			"name":              user.FirstName,
			"verification_link": link,
		},
	}
}

func (s *AuthService) link(path, token string) string {
	return strings.TrimRight(s.cfg.ServerHost, "/") + path + "?token=" + url.QueryEscape(token)
}

// dispatch hands the email to the mailer on a detached goroutine. The flow
// never waits for it and a failure does not undo the flow.
func (s *AuthService) dispatch(ctx context.Context, email core.Email) {
	s.emails.Add(1)
	go func() {
		defer s.emails.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.MailTimeout)
		defer cancel()

		if err := s.mailer.Send(ctx, email); err != nil {
			s.logger.Error(err, "failed to dispatch email", "template", email.Template)
		}
	}()
}
