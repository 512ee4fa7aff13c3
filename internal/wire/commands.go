package wire

// Command identifies the verb carried by a request's Yamf-Command header.
type Command string

const (
	CmdHealth            Command = "health"
	CmdServiceSetup      Command = "service-setup"
	CmdServiceRegister   Command = "service-register"
	CmdServiceUnregister Command = "service-unregister"
	CmdServiceLookup     Command = "service-lookup"
	CmdServiceCall       Command = "service-call"
	CmdRouteRegister     Command = "route-register"
	CmdPubsubPublish     Command = "pubsub-publish"
	CmdPubsubSubscribe   Command = "pubsub-subscribe"
	CmdPubsubUnsubscribe Command = "pubsub-unsubscribe"
	CmdRegistryPull      Command = "registry-pull"
	CmdCacheUpdate       Command = "cache-update"
	CmdRegistryUpdated   Command = "registry-updated"
	CmdGatewayPull       Command = "gateway-pull"
	CmdAuthLogin         Command = "auth-login"
	CmdAuthRefresh       Command = "auth-refresh"
)

// PublicCommands never require a registry token, regardless of environment.
var PublicCommands = map[Command]bool{
	CmdHealth:        true,
	CmdServiceLookup: true,
	CmdServiceCall:   true,
	CmdAuthLogin:     true,
	CmdAuthRefresh:   true,
}

// IsPublic reports whether cmd is exempt from registry-token enforcement.
func IsPublic(cmd Command) bool {
	return PublicCommands[cmd]
}

// LookupAll is the sentinel service-name value requesting the full services map.
const LookupAll = "*"

// RouteTypeController marks a route-register path as a prefix (controller)
// route rather than an exact-match route. A path ending in WildcardSuffix,
// or whose route-type header equals this value, resolves to the controller
// routing table.
const RouteTypeController = "controller"

// WildcardSuffix is the trailing marker on a route path that designates it
// as a prefix route, e.g. "/api/users/*" registers the prefix "/api/users/".
const WildcardSuffix = "*"
