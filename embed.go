package splotch

import _ "embed"

// analyticsScript is the beacon served at /analytics.js. It reports the
// page view on load and the time on page when the page is hidden.
//
//go:embed embedded/analytics.js
var analyticsScript []byte
