package core

import (
	"fmt"
	"time"
)

// Audience identifies what a token may be used for
type Audience string

const (
	AudienceAccess       Audience = "access"
	AudienceRefresh      Audience = "refresh"
	AudienceVerification Audience = "verification"
)

// Lifetimes holds the default validity window of every audience
type Lifetimes struct {
	Access       time.Duration
	Refresh      time.Duration
	Verification time.Duration
}

// DefaultLifetimes returns the stock lifetimes: 15 minutes, 7 days and 5 minutes.
func DefaultLifetimes() Lifetimes {
	return Lifetimes{
		Access:       15 * time.Minute,
		Refresh:      7 * 24 * time.Hour,
		Verification: 5 * time.Minute,
	}
}

// For returns the default lifetime of the audience. An audience outside the
// known set is a programming error and panics.
func (l Lifetimes) For(audience Audience) time.Duration {
	switch audience {
	case AudienceAccess:
		return l.Access
	case AudienceRefresh:
		return l.Refresh
	case AudienceVerification:
		return l.Verification
	default:
		panic(fmt.Sprintf("core: no lifetime for audience %q", audience))
	}
}

// Claims is the decoded content of a verified token
type Claims struct {
	ID        string    // Unique identifier, used as the revocation key
	Subject   string    // Public id of the user
	Audience  Audience  // What the token was issued for
	ExpiresAt time.Time // Absolute expiry
}

// Remaining returns how long the token stays valid after now.
func (c *Claims) Remaining(now time.Time) time.Duration {
	return c.ExpiresAt.Sub(now)
}

// Device is the client class a request comes from
type Device string

const (
	DeviceWeb    Device = "web"
	DeviceMobile Device = "mobile"
)

// DefaultDevices is the allowed set when none is configured
var DefaultDevices = []Device{DeviceWeb, DeviceMobile}

// ParseDevice validates raw against the allowed devices.
func ParseDevice(raw string, allowed []Device) (Device, error) {
	for _, d := range allowed {
		if string(d) == raw {
			return d, nil
		}
	}
	return "", ErrInvalidDevice
}
