package traefik

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/routeops/traefik-route-relay/pkg/routecfg"
)

func TestBuildUnitConfig(t *testing.T) {
	rc := routecfg.RouteConfig{
		RootURL:   "http://app-0.mymodel.example.com",
		Rule:      "Host(`app-0.example.com`)",
		ServiceID: "app-0-mymodel",
	}
	uc := BuildUnitConfig(rc)

	require.Equal(t, "relay-app-0-mymodel-router", uc.RouterName)
	require.Equal(t, "relay-app-0-mymodel-service", uc.ServiceName)
	require.Equal(t, "Host(`app-0.example.com`)", uc.Router.Rule)
	require.Equal(t, uc.ServiceName, uc.Router.Service)
	require.Equal(t, []string{"web"}, uc.Router.EntryPoints)
	require.Empty(t, uc.Router.Middlewares)
	require.Nil(t, uc.Middleware)
	require.Equal(t, []Server{{URL: "http://app-0.mymodel.example.com"}}, uc.Service.LoadBalancer.Servers)
}

func TestBuildUnitConfigStripPrefix(t *testing.T) {
	rc := routecfg.RouteConfig{
		RootURL:     "http://x",
		Rule:        "Host(`x`)",
		ServiceID:   "app-0-mymodel",
		StripPrefix: "myprefix",
	}
	uc := BuildUnitConfig(rc)

	require.Equal(t, "relay-myprefix-stripprefix", uc.MiddlewareName)
	require.NotNil(t, uc.Middleware)
	require.Equal(t, []string{"/myprefix"}, uc.Middleware.StripPrefix.Prefixes)
	require.Equal(t, []string{uc.MiddlewareName}, uc.Router.Middlewares)
}

func TestBuildUnitConfigCustomEntryPoints(t *testing.T) {
	rc := routecfg.RouteConfig{RootURL: "http://x", Rule: "Host(`x`)", ServiceID: "a-0-m"}
	uc := BuildUnitConfig(rc, "websecure")
	require.Equal(t, []string{"websecure"}, uc.Router.EntryPoints)
}

func TestMergeOneEntryPerUnit(t *testing.T) {
	var configs []UnitConfig
	for i := 0; i < 3; i++ {
		configs = append(configs, BuildUnitConfig(routecfg.RouteConfig{
			RootURL:   fmt.Sprintf("http://app-%d.example.com", i),
			Rule:      fmt.Sprintf("Host(`app-%d.example.com`)", i),
			ServiceID: fmt.Sprintf("app-%d-mymodel", i),
		}))
	}
	doc := Merge(configs)

	require.Len(t, doc.HTTP.Routers, 3)
	require.Len(t, doc.HTTP.Services, 3)
	require.Nil(t, doc.HTTP.Middlewares)
	for i := 0; i < 3; i++ {
		router, ok := doc.HTTP.Routers[fmt.Sprintf("relay-app-%d-mymodel-router", i)]
		require.True(t, ok)
		require.Equal(t, fmt.Sprintf("relay-app-%d-mymodel-service", i), router.Service)
	}
}

func TestMergeLastWriteWins(t *testing.T) {
	first := BuildUnitConfig(routecfg.RouteConfig{
		RootURL: "http://first", Rule: "Host(`first`)", ServiceID: "app-0-m",
	})
	second := BuildUnitConfig(routecfg.RouteConfig{
		RootURL: "http://second", Rule: "Host(`second`)", ServiceID: "app-0-m",
	})
	doc := Merge([]UnitConfig{first, second})

	require.Len(t, doc.HTTP.Routers, 1)
	require.Equal(t, "Host(`second`)", doc.HTTP.Routers["relay-app-0-m-router"].Rule)
	require.Equal(t, "http://second", doc.HTTP.Services["relay-app-0-m-service"].LoadBalancer.Servers[0].URL)
}

func TestMergeCollectsMiddlewares(t *testing.T) {
	plain := BuildUnitConfig(routecfg.RouteConfig{
		RootURL: "http://a", Rule: "Host(`a`)", ServiceID: "a-0-m",
	})
	stripped := BuildUnitConfig(routecfg.RouteConfig{
		RootURL: "http://b", Rule: "Host(`b`)", ServiceID: "b-0-m", StripPrefix: "p",
	})
	doc := Merge([]UnitConfig{plain, stripped})

	require.Len(t, doc.HTTP.Middlewares, 1)
	mw, ok := doc.HTTP.Middlewares["relay-p-stripprefix"]
	require.True(t, ok)
	require.Equal(t, []string{"/p"}, mw.StripPrefix.Prefixes)
}

func TestDocumentWireShape(t *testing.T) {
	doc := Merge([]UnitConfig{BuildUnitConfig(routecfg.RouteConfig{
		RootURL:     "http://app-0.example.com",
		Rule:        "Host(`app-0.example.com`)",
		ServiceID:   "app-0-m",
		StripPrefix: "p",
	})})

	out, err := yaml.Marshal(doc)
	require.NoError(t, err)
	text := string(out)
	for _, want := range []string{
		"http:", "routers:", "services:", "middlewares:",
		"entryPoints:", "loadBalancer:", "stripPrefix:",
		"rule: Host(`app-0.example.com`)",
		"url: http://app-0.example.com",
		"- /p",
	} {
		require.True(t, strings.Contains(text, want), "missing %q in:\n%s", want, text)
	}
}

func TestDocumentOmitsEmptyMiddlewares(t *testing.T) {
	doc := Merge([]UnitConfig{BuildUnitConfig(routecfg.RouteConfig{
		RootURL: "http://a", Rule: "Host(`a`)", ServiceID: "a-0-m",
	})})
	out, err := yaml.Marshal(doc)
	require.NoError(t, err)
	require.NotContains(t, string(out), "middlewares")
}
