// Package discovery locates Hubitat Elevation hubs on the local network
// using multicast DNS.
//
// Hubs advertise their web UI as an "_http._tcp" service with a hostname of
// "hubitat.local" (or a renamed variant such as "hubitat-c8.local"). The
// scanner browses that service type and filters answers by hostname, so
// other HTTP services on the network are ignored.
//
// Discovery only yields the hub's address; the Maker API app ID and access
// token still come from the user's configuration.
//
// Requires multicast support on the network interface and mDNS (UDP port
// 5353) allowed through the firewall. Safe for concurrent use.
package discovery
