package alert

import (
	"fmt"
	"strings"
	"time"

	"trackdq/internal/domain"
)

// Notification is the payload handed to the external notification channel.
// Shape only; transport is out of scope.
type Notification struct {
	OverallStatus bool   `json:"overall_status"`
	Message       string `json:"message"`
	Pipeline      string `json:"pipeline"`
	Timestamp     string `json:"timestamp"`
	DashboardURL  string `json:"dashboard_url"`
}

// FormatNotification renders the multi-line notification body: a warning
// headline with one bullet per triggering reason, or an all-clear line.
func FormatNotification(decision domain.AlertDecision, pipeline, dashboardURL string) Notification {
	n := Notification{
		OverallStatus: decision.AllClear,
		Pipeline:      pipeline,
		Timestamp:     time.Now().UTC().Format("2006-01-02 15:04:05 UTC"),
		DashboardURL:  dashboardURL,
	}

	if decision.AllClear {
		n.Message = ":white_check_mark: *Data Quality Check Passed*\n" +
			"All metrics within acceptable thresholds."
		return n
	}

	var b strings.Builder
	b.WriteString(":warning: *Data Quality Alert*\n\n")
	fmt.Fprintf(&b, "*%d issue(s) detected:*\n", len(decision.Reasons))
	for _, r := range decision.Reasons {
		b.WriteString("• " + r.Message + "\n")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "*Pipeline:* %s\n", pipeline)
	fmt.Fprintf(&b, "*Time:* %s\n", n.Timestamp)
	if dashboardURL != "" {
		fmt.Fprintf(&b, "*Dashboard:* <%s|View Dashboard>\n", dashboardURL)
	}
	n.Message = b.String()
	return n
}
