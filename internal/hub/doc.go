// Package hub is the top-level interface to one Hubitat Elevation hub.
//
// A Hub combines three flows of hub data:
//
//   - Pull: initial device and mode state is downloaded over the Maker API
//     (internal/maker, internal/device) when Start is called.
//   - Push: the hub POSTs device and mode events to a webhook listener
//     (internal/server by default) registered via the Maker API's postURL
//     endpoint. Pushed events keep the mirrored state current and drive
//     listener callbacks.
//   - Scrape: identity details (platform version, MAC, UID) come from the
//     hub's unauthenticated admin page, parsed with golang.org/x/net/html.
//     This is best-effort; the hub works fine without it.
//
// All pushed events funnel through a single consumer goroutine, so state
// mutation is serialized regardless of how many connections the webhook
// server handles concurrently. Reads take snapshots and are safe from any
// goroutine.
package hub
