package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const purgeTimeout = time.Minute

// SchedulePurge registers a cron job that deletes read notifications older
// than retention.
func SchedulePurge(c *cron.Cron, spec string, svc NotificationService, retention time.Duration, log logrus.FieldLogger) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
		defer cancel()

		n, err := svc.PurgeRead(ctx, retention)
		if err != nil {
			log.WithError(err).Error("failed to purge read notifications")
			return
		}
		if n > 0 {
			log.WithField("deleted", n).Info("purged read notifications")
		}
	})
}
