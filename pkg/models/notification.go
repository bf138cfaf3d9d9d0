package models

import "time"

// IncomingNotification is a single notification captured from the system
type IncomingNotification struct {
	SourceApp    string    `json:"source_app"` // package name or desktop entry
	AppName      string    `json:"app_name"`
	Title        string    `json:"title,omitempty"`
	Body         string    `json:"body,omitempty"`
	ExpandedBody string    `json:"expanded_body,omitempty"`
	SubText      string    `json:"sub_text,omitempty"`
	ReceivedAt   time.Time `json:"received_at"`
}

// FullBody returns the expanded body when present, else the short body
func (n IncomingNotification) FullBody() string {
	if n.ExpandedBody != "" {
		return n.ExpandedBody
	}
	return n.Body
}

// CombinedText returns title and full body joined by a single space
func (n IncomingNotification) CombinedText() string {
	return n.Title + " " + n.FullBody()
}

// DisplayName returns the app name, falling back to the known transit app
// name and finally the raw source identifier
func (n IncomingNotification) DisplayName() string {
	if n.AppName != "" {
		return n.AppName
	}
	if app, ok := LookupTransitApp(n.SourceApp); ok {
		return app.DisplayName
	}
	return n.SourceApp
}
