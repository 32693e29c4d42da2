package router

import (
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

// APIPrefix is the group every module is mounted under.
const APIPrefix = "/api"

// Registry collects modules and the middleware shared by the API group, then
// mounts them once in the order they were added.
type Registry struct {
	Engine      *gin.Engine
	API         *gin.RouterGroup
	middlewares []gin.HandlerFunc
	modules     []Module
	mounted     bool
}

func NewRegistry(engine *gin.Engine) *Registry {
	return &Registry{Engine: engine, API: engine.Group(APIPrefix)}
}

func (r *Registry) Use(mw ...gin.HandlerFunc) {
	r.middlewares = append(r.middlewares, mw...)
}

// Add queues modules for mounting. Nil entries are skipped so optional modules
// can be passed unconditionally.
func (r *Registry) Add(mods ...Module) {
	for _, m := range mods {
		if m != nil {
			r.modules = append(r.modules, m)
		}
	}
}

// RegisterAll mounts the queued modules. Later calls are no-ops since gin
// panics on duplicate routes.
func (r *Registry) RegisterAll() {
	if r.mounted {
		return
	}
	r.mounted = true
	if len(r.middlewares) > 0 {
		r.API.Use(r.middlewares...)
	}
	for _, m := range r.modules {
		m.Register(r.API)
	}
}

// Routes lists mounted API routes as "METHOD /path", sorted.
func (r *Registry) Routes() []string {
	var out []string
	for _, ri := range r.Engine.Routes() {
		if strings.HasPrefix(ri.Path, APIPrefix+"/") {
			out = append(out, ri.Method+" "+ri.Path)
		}
	}
	sort.Strings(out)
	return out
}
