package ports

import (
	"context"

	"github.com/layer-3/gatekeeper/core"
)

// Mailer hands an email over for delivery
type Mailer interface {
	Send(ctx context.Context, email core.Email) error
}
