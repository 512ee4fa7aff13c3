// Package wire defines the header-based protocol every YAMF process speaks:
// the command vocabulary, the header names that carry command arguments, and
// the body codec used on both requests and responses.
package wire

// Header names, all prefixed yamf- per the protocol's header surface. They
// are written in net/http's canonical form (Yamf-Command); net/http
// canonicalizes header names on both send and receive, so they match the
// lowercase yamf-command spelling the fabric documents.
const (
	HeaderCommand         = "Yamf-Command"
	HeaderServiceName     = "Yamf-Service-Name"
	HeaderServiceLocation = "Yamf-Service-Location"
	HeaderServiceHome     = "Yamf-Service-Home"
	HeaderRoutePath       = "Yamf-Route-Path"
	HeaderRouteDataType   = "Yamf-Route-Datatype"
	HeaderRouteType       = "Yamf-Route-Type"
	HeaderPubsubChannel   = "Yamf-Pubsub-Channel"
	HeaderAuthToken       = "Yamf-Auth-Token"
	HeaderRegistryToken   = "Yamf-Registry-Token"
	HeaderUseAuthService  = "Yamf-Use-Auth-Service"
)
