package metrics

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/focusflow/focusflow/internal/logging"
)

// StartInfluxPusher starts a background loop to push metrics to InfluxDB
func StartInfluxPusher(ctx context.Context, url, token, org, bucket string, interval time.Duration) {
	if url == "" || bucket == "" {
		return
	}
	logging.Get().Info().Str("url", url).Dur("interval", interval).Msg("starting influxdb pusher")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	client := &http.Client{Timeout: 5 * time.Second}
	writeURL := fmt.Sprintf("%s/api/v2/write?org=%s&bucket=%s&precision=s", strings.TrimRight(url, "/"), org, bucket)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pushToInflux(client, writeURL, token, time.Now())
		}
	}
}

// lineProtocol renders a snapshot as a single Influx line.
func lineProtocol(s StatsSnapshot, now time.Time) string {
	return fmt.Sprintf(
		"focusflow displayed=%di,suppressed=%di,unavailable=%di,permission_denied=%di,display_failed=%di,dismissed_click=%di,dismissed_timeout=%di,dismissed_manual=%di,dismissed_closed=%di,active=%di %d",
		s.Displayed, s.Suppressed, s.Unavailable, s.PermissionDenied, s.DisplayFailed,
		s.DismissedClick, s.DismissedTimeout, s.DismissedManual, s.DismissedClosed, s.ActiveAlerts, now.Unix(),
	)
}

func pushToInflux(client *http.Client, url, token string, now time.Time) {
	req, err := http.NewRequest("POST", url, bytes.NewReader([]byte(lineProtocol(GetSnapshot(), now))))
	if err != nil {
		logging.Get().Error().Err(err).Msg("influxdb request creation failed")
		return
	}

	req.Header.Set("Authorization", "Token "+token)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := client.Do(req)
	if err != nil {
		logging.Get().Error().Err(err).Msg("influxdb push failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		logging.Get().Warn().Int("status", resp.StatusCode).Msg("influxdb rejected metrics")
	}
}
