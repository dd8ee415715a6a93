// Package hassio mediates every call to the Home Assistant Supervisor API and
// the Home Assistant core API.
//
// The Supervisor owns snapshot lifecycle (create, list, delete, restore,
// upload, download), system information and add-on options. Home Assistant
// core receives UI state: persistent notifications, bus events and two
// sensors. The two authorities use different contracts and different auth
// schemes, and the Gateway hides both.
//
// # Supervisor Envelope
//
// Every Supervisor reply is wrapped as:
//
//	{"result": "ok", "data": {...}}
//
// A reply is accepted only when the HTTP status is 2xx and result is "ok";
// the data object (or an empty map) is returned. Home Assistant replies are
// checked for HTTP success only.
//
// # Authentication
//
// The token is the configured value, or HASSIO_TOKEN when none is configured.
// Supervisor calls send it as X-HASSIO-KEY; Home Assistant calls send it as a
// bearer token. Both send Client-Identifier. Headers are rebuilt per request.
//
// # Usage Example
//
//	gw := hassio.NewGateway(registry, &http.Client{Timeout: 30 * time.Second})
//
//	list, err := gw.SnapshotList()
//	if err != nil {
//	    log.Fatal(hassio.ShortMessage(err))
//	}
//
//	if err := gw.Delete(list[0].Slug()); hassio.IsDeletionRefused(err) {
//	    log.Printf("supervisor kept %s", list[0].Slug())
//	}
//
// # Snapshot Cache
//
// Gateway.Snapshot caches raw info per slug for the life of the Gateway.
// Gateway.Delete drops the entry before it sends the request, so a failed
// delete still forces a fresh fetch next time. The cache is not locked;
// callers that share a Gateway across goroutines must serialize Snapshot and
// Delete themselves.
//
// # Error Handling
//
// Failures are *GatewayError values classified as transport, malformed
// response, supervisor reported or deletion refused. Use the Is* helpers,
// which look through wrapped errors.
package hassio
