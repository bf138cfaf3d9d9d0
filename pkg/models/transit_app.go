package models

// TransitApp is a notification source that can be monitored
type TransitApp struct {
	Identifier  string `json:"identifier" yaml:"identifier"`
	DisplayName string `json:"display_name" yaml:"display_name"`
}

// DefaultTransitApps is the built-in allow-list of transit sources
var DefaultTransitApps = []TransitApp{
	{Identifier: "com.google.android.apps.maps", DisplayName: "Google Maps"},
	{Identifier: "com.thetransitapp.droid", DisplayName: "Transit"},
	{Identifier: "com.citymapper.app.release", DisplayName: "Citymapper"},
	{Identifier: "com.apple.Maps", DisplayName: "Apple Maps"},
}

// LookupTransitApp finds a built-in transit app by identifier
func LookupTransitApp(identifier string) (TransitApp, bool) {
	for _, app := range DefaultTransitApps {
		if app.Identifier == identifier {
			return app, true
		}
	}
	return TransitApp{}, false
}
