//go:build darwin

package platform

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework Cocoa -framework AppKit
#import <Cocoa/Cocoa.h>
#import <AppKit/AppKit.h>

int appIsActive() {
    return [NSApp isActive] ? 1 : 0;
}

void bringToFront() {
    [NSApp activateIgnoringOtherApps:YES];
}
*/
import "C"

// IsAppActive reports whether the app currently has focus
func IsAppActive() bool {
	return C.appIsActive() == 1
}

// BringToFront raises the app above other windows so the alarm is seen
func BringToFront() {
	C.bringToFront()
}
