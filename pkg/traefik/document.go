// Package traefik models the slice of the traefik dynamic configuration this
// relay produces: http routers, services and strip-prefix middlewares.
package traefik

// Document is the aggregate dynamic configuration handed to traefik. Field
// names follow traefik's wire contract (camelCase), for both yaml and json.
type Document struct {
	HTTP HTTPConfig `yaml:"http" json:"http"`
}

type HTTPConfig struct {
	Routers     map[string]Router     `yaml:"routers" json:"routers"`
	Services    map[string]Service    `yaml:"services" json:"services"`
	Middlewares map[string]Middleware `yaml:"middlewares,omitempty" json:"middlewares,omitempty"`
}

type Router struct {
	Rule        string   `yaml:"rule" json:"rule"`
	Service     string   `yaml:"service" json:"service"`
	EntryPoints []string `yaml:"entryPoints" json:"entryPoints"`
	Middlewares []string `yaml:"middlewares,omitempty" json:"middlewares,omitempty"`
}

type Service struct {
	LoadBalancer LoadBalancer `yaml:"loadBalancer" json:"loadBalancer"`
}

type LoadBalancer struct {
	Servers []Server `yaml:"servers" json:"servers"`
}

type Server struct {
	URL string `yaml:"url" json:"url"`
}

type Middleware struct {
	StripPrefix StripPrefix `yaml:"stripPrefix" json:"stripPrefix"`
}

type StripPrefix struct {
	Prefixes []string `yaml:"prefixes" json:"prefixes"`
}
