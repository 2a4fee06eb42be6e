package urls

// Documentation URLs for guides and troubleshooting.
// All URLs point to the Hubitat documentation site.

// MakerAPISetup is the guide for installing the Maker API app on a hub
// and obtaining its app ID and access token.
const MakerAPISetup = "https://docs2.hubitat.com/en/apps/maker-api"

// HubSecurity explains hub login security, which can block unauthenticated
// access to the /hub/edit admin page without affecting the Maker API.
const HubSecurity = "https://docs2.hubitat.com/en/user-interface/settings/hub-security"

// EventSocket documents the hub's undocumented-but-stable /eventsocket
// websocket endpoint used by the watch command.
const EventSocket = "https://docs2.hubitat.com/en/developer/interfaces/websocket-interface"

// FindingYourHub covers locating a hub's IP address on the local network.
const FindingYourHub = "https://docs2.hubitat.com/en/user-interface/settings/network-setup"
