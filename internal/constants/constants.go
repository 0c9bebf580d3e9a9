// Package constants holds build information.
package constants

import "runtime"

// Version is reported by -version and by the user agent of feed downloads.
const Version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH
