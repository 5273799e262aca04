package traefik

import (
	"github.com/routeops/traefik-route-relay/pkg/routecfg"
)

// namePrefix marks every router/service/middleware name this relay generates.
const namePrefix = "relay-"

// DefaultEntryPoint is the traefik entry point routers bind to unless the
// caller overrides it.
const DefaultEntryPoint = "web"

// UnitConfig is one unit's contribution to the merged document: a named
// router and service, plus an optional strip-prefix middleware.
type UnitConfig struct {
	RouterName  string
	Router      Router
	ServiceName string
	Service     Service

	// MiddlewareName is empty when the unit requests no middleware.
	MiddlewareName string
	Middleware     *Middleware
}

// BuildUnitConfig turns a rendered route config into its document fragment.
// Names are derived deterministically from the config's service id, so two
// distinct units never collide. Pure function.
func BuildUnitConfig(rc routecfg.RouteConfig, entryPoints ...string) UnitConfig {
	if len(entryPoints) == 0 {
		entryPoints = []string{DefaultEntryPoint}
	}

	routerName := namePrefix + rc.ServiceID + "-router"
	serviceName := namePrefix + rc.ServiceID + "-service"

	uc := UnitConfig{
		RouterName: routerName,
		Router: Router{
			Rule:        rc.Rule,
			Service:     serviceName,
			EntryPoints: entryPoints,
		},
		ServiceName: serviceName,
		Service: Service{
			LoadBalancer: LoadBalancer{
				Servers: []Server{{URL: rc.RootURL}},
			},
		},
	}

	if rc.StripPrefix != "" {
		uc.MiddlewareName = namePrefix + rc.StripPrefix + "-stripprefix"
		uc.Middleware = &Middleware{
			StripPrefix: StripPrefix{
				Prefixes: []string{"/" + rc.StripPrefix},
			},
		}
		uc.Router.Middlewares = []string{uc.MiddlewareName}
	}

	return uc
}

// Merge unions unit fragments into one document, in input order. Duplicate
// names overwrite earlier entries (last write wins); names are unique per
// unit by construction, so this only matters for malformed input. The
// middlewares section is present only when some fragment contributes one.
func Merge(configs []UnitConfig) Document {
	doc := Document{
		HTTP: HTTPConfig{
			Routers:  make(map[string]Router, len(configs)),
			Services: make(map[string]Service, len(configs)),
		},
	}
	for _, uc := range configs {
		doc.HTTP.Routers[uc.RouterName] = uc.Router
		doc.HTTP.Services[uc.ServiceName] = uc.Service
		if uc.Middleware != nil {
			if doc.HTTP.Middlewares == nil {
				doc.HTTP.Middlewares = make(map[string]Middleware)
			}
			doc.HTTP.Middlewares[uc.MiddlewareName] = *uc.Middleware
		}
	}
	return doc
}
