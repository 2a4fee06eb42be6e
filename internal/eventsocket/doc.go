// Package eventsocket implements a client for the hub's /eventsocket
// websocket feed, an alternative to webhook delivery.
//
// The feed carries every event the hub generates as flat JSON objects,
// without requiring a postURL registration or an inbound listening port,
// which makes it the better transport from behind NAT. The trade-off is
// that the feed is undocumented and unauthenticated, and it delivers all
// events hub-wide rather than only those for devices the Maker API app
// exposes.
package eventsocket
