package notify

import (
	"fmt"

	"github.com/mamadbah2/watermonitor/internal/domain/models"
)

// LowStockAlert builds the alert sent when a site falls below threshold.
func LowStockAlert(siteID string, stock, threshold float64) models.Notification {
	return models.Notification{
		Subject: fmt.Sprintf("Low Stock Alert - %s", siteID),
		Body:    fmt.Sprintf("Stock below %s.\nCurrent Stock: %s", models.FormatStock(threshold), models.FormatStock(stock)),
	}
}

// IssueRaised builds the notification for an operator submitted issue.
func IssueRaised(issue models.Issue) models.Notification {
	body := fmt.Sprintf("ISSUE RAISED\n\nSite ID: %s\n\nDescription:\n%s\n", issue.SiteID, issue.Description)
	return models.Notification{
		Subject:    fmt.Sprintf("Issue Raised - %s", issue.SiteID),
		Body:       body,
		Attachment: issue.Attachment,
	}
}
