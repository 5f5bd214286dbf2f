package mail

import (
	"fmt"
	"time"
)

// Message is a rendered email ready to send.
type Message struct {
	Subject string
	HTML    string
}

// ReportReadyMessage announces a finished interview report.
func ReportReadyMessage(name string, interviewID uint, score int, publicDomain string) Message {
	return Message{
		Subject: "Your interview report is ready",
		HTML: fmt.Sprintf(
			`<p>Hi %s,</p>
<p>Your visa interview practice report is ready. You scored <strong>%d/100</strong>.</p>
<p><a href="%s/interviews/%d">View your full report</a></p>
<p>— Vysa</p>`,
			htmlName(name), score, publicDomain, interviewID),
	}
}

// DeletionWarningMessage warns that an interview expires within 24 hours.
func DeletionWarningMessage(name string, interviewID uint, expiresAt time.Time, publicDomain string) Message {
	return Message{
		Subject: "An interview recording will be deleted soon",
		HTML: fmt.Sprintf(
			`<p>Hi %s,</p>
<p>One of your practice interviews and its recording will be deleted on <strong>%s</strong>.</p>
<p>Download anything you want to keep before then: <a href="%s/interviews/%d">open interview</a>.</p>
<p>— Vysa</p>`,
			htmlName(name), expiresAt.UTC().Format("Jan 2, 2006 15:04 MST"), publicDomain, interviewID),
	}
}

// LowBalanceMessage nudges a user whose credits no longer cover a session.
func LowBalanceMessage(name string, balance int, publicDomain string) Message {
	return Message{
		Subject: "You're running low on interview credits",
		HTML: fmt.Sprintf(
			`<p>Hi %s,</p>
<p>You have <strong>%d</strong> credits left — not enough for another full practice session.</p>
<p><a href="%s/billing">Top up your credits</a></p>
<p>— Vysa</p>`,
			htmlName(name), balance, publicDomain),
	}
}

// PurchaseReceiptMessage confirms a completed credit purchase.
func PurchaseReceiptMessage(name string, credits int, balance int) Message {
	return Message{
		Subject: fmt.Sprintf("Receipt: %d interview credits", credits),
		HTML: fmt.Sprintf(
			`<p>Hi %s,</p>
<p>Thanks for your purchase. <strong>%d credits</strong> were added to your account; your balance is now <strong>%d</strong>.</p>
<p>— Vysa</p>`,
			htmlName(name), credits, balance),
	}
}

func htmlName(name string) string {
	if name == "" {
		return "there"
	}
	return name
}
