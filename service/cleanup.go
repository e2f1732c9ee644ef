package service

import (
	"context"
	"time"
)

// RunInactivePurge deletes unverified accounts older than maxAge right away
// and then every interval, until ctx is done.
func (s *AuthService) RunInactivePurge(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("inactive user purge started", "interval", interval, "max_age", maxAge)
	for {
		s.purgeOnce(ctx, maxAge)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *AuthService) purgeOnce(ctx context.Context, maxAge time.Duration) {
	count, err := s.PurgeInactive(ctx, maxAge)
	if err != nil {
		s.logger.Error(err, "failed to purge inactive users")
		return
	}
	if count > 0 {
		s.logger.Info("purged inactive users", "count", count)
	}
}
