package relayserver

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/routeops/traefik-route-relay/internal/auth"
	"github.com/routeops/traefik-route-relay/internal/config"
	"github.com/routeops/traefik-route-relay/internal/logx"
	"github.com/routeops/traefik-route-relay/internal/ratelimit"
	"github.com/routeops/traefik-route-relay/pkg/ingress"
	"github.com/routeops/traefik-route-relay/pkg/requestid"
)

type unitBody struct {
	Model string `json:"model"`
	Host  string `json:"host"`
	Port  int    `json:"port"`
}

type unitView struct {
	ingress.UnitRequest
	URL string `json:"url,omitempty"`
}

// NewRouter wires the relay's HTTP surface: the traefik-facing dynamic
// config endpoint, the requirer-facing unit API and a small admin view.
func NewRouter(cfg *config.Config, st *state, accessLogger *log.Logger, accessFormatter *logx.AccessFormatter) *gin.Engine {
	r := gin.New()
	r.Use(requestIDMiddleware(requestid.DefaultHeaderKey))
	if cfg.Logging.AccessLog {
		r.Use(requestLogger(accessLogger, requestid.DefaultHeaderKey, accessFormatter))
	}
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	// Traefik polls this (http provider). While the template is broken the
	// poll fails and traefik keeps serving its previous configuration.
	r.GET("/dynamic-config", func(c *gin.Context) {
		doc, err := st.Document()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		if wantsJSON(c) {
			c.JSON(http.StatusOK, doc)
			return
		}
		c.YAML(http.StatusOK, doc)
	})

	secured := r.Group("/")
	secured.Use(auth.Middleware(cfg.Auth.APIKey))
	secured.Use(rateLimitMiddleware(ratelimit.New(cfg.Limits.RequestsPerSecond, cfg.Limits.Burst)))

	v1 := secured.Group("/v1")
	v1.PUT("/units/*unit", putUnit(st))
	v1.DELETE("/units/*unit", deleteUnit(st))
	v1.GET("/units", listUnits(st))

	secured.GET("/admin/template", func(c *gin.Context) {
		tpl, err := st.Template()
		resp := gin.H{"template": tpl, "valid": err == nil}
		if err != nil {
			resp["error"] = err.Error()
		}
		c.JSON(http.StatusOK, resp)
	})

	return r
}

func putUnit(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body unitBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
			return
		}
		req := ingress.UnitRequest{
			Unit:  unitParam(c),
			Model: body.Model,
			Host:  body.Host,
			Port:  body.Port,
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}

		out, err := st.PutUnit(req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		switch {
		case out.TemplateErr != nil:
			// Stored; routed once the operator fixes the template.
			c.JSON(http.StatusConflict, gin.H{
				"unit":  req.Unit,
				"error": out.TemplateErr.Error(),
			})
		case out.Skipped != nil:
			log.Printf("unit %s registered but not routable: %s", req.Unit, out.Skipped.Reason)
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"unit":  req.Unit,
				"error": out.Skipped.Reason,
			})
		default:
			// Publish the url immediately; traefik may not have polled the
			// new config yet.
			log.Printf("publishing to %s: %s", req.Unit, out.URL)
			c.JSON(http.StatusOK, gin.H{"unit": req.Unit, "url": out.URL})
		}
	}
}

func deleteUnit(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		unit := unitParam(c)
		ok, err := st.DeleteUnit(unit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown unit " + unit})
			return
		}
		c.JSON(http.StatusOK, gin.H{"unit": unit, "deleted": true})
	}
}

func listUnits(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		units, res, err := st.Snapshot()
		views := make([]unitView, 0, len(units))
		for _, u := range units {
			views = append(views, unitView{UnitRequest: u, URL: res.URLs[u.Unit]})
		}
		resp := gin.H{"units": views}
		if len(res.Skipped) > 0 {
			resp["skipped"] = res.Skipped
		}
		if err != nil {
			resp["template_error"] = err.Error()
		}
		c.JSON(http.StatusOK, resp)
	}
}

// unitParam extracts the unit name from a wildcard path segment. Unit names
// contain "/" ("app/0"), so :param routing cannot hold them.
func unitParam(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("unit"), "/")
}

func wantsJSON(c *gin.Context) bool {
	if c.Query("format") == "json" {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}
