// Package server implements the inbound half of the hub connection: a small
// HTTP server that receives the webhook POSTs the hub sends after its
// postURL registration.
//
// Each POST body has the shape
//
//	{"content": {"deviceId": "...", "name": "...", "value": ..., "displayName": "..."}}
//
// and is decoded into a device.Event and handed to the configured handler.
// The server does not interpret events; state mutation belongs to the hub
// core, which consumes events over its own channel. Malformed payloads are
// rejected with 400 and logged.
//
// The bound address/port is exclusively owned between Start and Stop and is
// released deterministically on Stop, even when Start failed partway.
package server
