package mail

import (
	"fmt"
	"html"

	"github.com/planflowhq/planflow/internal/pkg/env"
)

func publicBaseURL() string {
	base := env.GetEnv("PUBLIC_DOMAIN", "")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}
	return base
}

// SendShareInvitation notifies an invitee that a lesson was shared with
// them. Callers treat delivery as advisory; the grant itself is the
// durable effect.
func SendShareInvitation(to, inviterName, lessonTitle, shareLink string) error {
	if inviterName == "" {
		inviterName = "A colleague"
	}
	link := fmt.Sprintf("%s/p/%s", publicBaseURL(), shareLink)
	body := fmt.Sprintf(`
		<h1>You've been invited to collaborate!</h1>
		<p><strong>%s</strong> has invited you to edit the lesson plan:</p>
		<div style="padding:16px;background:#f3f4f6;border-radius:8px;border-left:4px solid #6366f1;">
			<h2 style="margin:0;font-size:18px;">%s</h2>
		</div>
		<p><a href="%s">Open Lesson Plan</a></p>
		<p style="font-size:12px;color:#666;">If you did not expect this invitation, you can ignore this email.</p>`,
		html.EscapeString(inviterName), html.EscapeString(lessonTitle), link)

	subject := fmt.Sprintf("%s shared a lesson plan with you", inviterName)
	return SendMail(to, subject, body)
}

// SendPasswordReset sends the password reset link for a pending token.
func SendPasswordReset(to, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", publicBaseURL(), token)
	body := fmt.Sprintf(`
		<h1>Reset your password</h1>
		<p>Click the link below to choose a new password. The link is valid for 24 hours.</p>
		<p><a href="%s">Reset password</a></p>
		<p style="font-size:12px;color:#666;">If you did not request a reset, you can ignore this email.</p>`,
		link)

	return SendMail(to, "Password reset", body)
}

// SendFeedback forwards user feedback to the configured inbox.
func SendFeedback(fromEmail, feedbackType, message string) error {
	to := env.GetEnv("FEEDBACK_RECIPIENT", "")
	if to == "" {
		return fmt.Errorf("FEEDBACK_RECIPIENT not configured")
	}
	if fromEmail == "" {
		fromEmail = "anonymous"
	}
	body := fmt.Sprintf(`
		<h3>New Feedback Received</h3>
		<p><strong>Type:</strong> %s</p>
		<p><strong>User:</strong> %s</p>
		<p><strong>Message:</strong></p>
		<blockquote style="background:#f1f1f1;padding:10px;border-left:4px solid #333;">%s</blockquote>`,
		html.EscapeString(feedbackType), html.EscapeString(fromEmail), html.EscapeString(message))

	return SendMail(to, fmt.Sprintf("[Feedback] %s", feedbackType), body)
}
