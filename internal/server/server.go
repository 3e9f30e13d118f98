package server

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mdouchement/sharelist/internal/access"
	"github.com/mdouchement/sharelist/internal/database"
	"github.com/mdouchement/sharelist/internal/model"
	"github.com/mdouchement/sharelist/internal/realtime"
	"github.com/mdouchement/sharelist/internal/server/middlewares"
	"github.com/mdouchement/sharelist/internal/server/service"
)

// A Controller is an Inversion Of Control pattern used to init the server package.
type Controller struct {
	Version        string
	Database       database.Client
	Hub            *realtime.Hub
	NoRegistration bool
	// JWT params
	SigningKey          []byte
	TokenExpirationTime time.Duration
}

// EchoEngine instantiates the web server.
func EchoEngine(ctrl Controller) *echo.Echo {
	engine := echo.New()
	engine.Use(middleware.Recover())
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	engine.Use(middleware.Gzip())

	engine.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${status}] ${method} ${uri} (${bytes_in}) ${latency_human}\n",
	}))
	engine.Binder = middlewares.NewBinder()
	// Error handler
	engine.HTTPErrorHandler = middlewares.HTTPErrorHandler

	engine.Pre(middleware.Rewrite(map[string]string{
		"/": "/version",
	}))

	////////////
	// Router //
	////////////

	gate := access.NewGate(ctrl.Database)
	locks := service.NewLocks()

	router := engine.Group("")
	restricted := router.Group("")
	restricted.Use(middlewares.CurrentUser(ctrl.Database, ctrl.SigningKey))

	// generic handlers
	//
	router.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"version": ctrl.Version,
		})
	})

	//
	// auth handlers
	//
	auth := &auth{
		users: service.NewUser(ctrl.Database, ctrl.SigningKey, ctrl.TokenExpirationTime),
	}
	if !ctrl.NoRegistration {
		router.POST("/register", auth.Register)
	}
	router.POST("/login", auth.Login)

	//
	// list handlers
	//
	list := &list{
		lists: service.NewList(ctrl.Database, gate, ctrl.Hub, locks),
	}
	restricted.GET("/lists", list.Index)
	restricted.POST("/lists", list.Create)
	restricted.GET("/lists/:id", list.Show)
	restricted.PATCH("/lists/:id", list.Update)
	restricted.DELETE("/lists/:id", list.Delete)
	restricted.POST("/lists/join", list.Join)
	restricted.DELETE("/lists/:id/leave", list.Leave)

	//
	// item handlers
	//
	item := &item{
		db:    ctrl.Database,
		gate:  gate,
		hub:   ctrl.Hub,
		locks: locks,
	}
	restricted.POST("/items/sync", item.Sync)

	//
	// realtime handler
	//
	rt := &rt{
		db:   ctrl.Database,
		gate: gate,
		hub:  ctrl.Hub,
	}
	restricted.GET("/realtime", rt.Subscribe)

	return engine
}

// PrintRoutes prints the Echo engine exposed routes.
func PrintRoutes(e *echo.Echo) {
	ignored := map[string]bool{
		"":   true,
		".":  true,
		"/*": true,
	}

	routes := e.Routes()
	sort.Slice(routes, func(i int, j int) bool {
		return routes[i].Path < routes[j].Path
	})

	fmt.Println("Routes:")
	for _, route := range routes {
		if ignored[route.Path] {
			continue
		}
		fmt.Printf("%6s %s\n", route.Method, route.Path)
	}
}

func currentUser(c echo.Context) *model.User {
	user, ok := c.Get(middlewares.CurrentUserContextKey).(*model.User)
	if ok {
		return user
	}
	return nil
}
