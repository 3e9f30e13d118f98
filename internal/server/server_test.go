package server_test

import (
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/appleboy/gofight/v2"
	"github.com/labstack/echo/v4"
	argon2 "github.com/mdouchement/simple-argon2"
	"github.com/mdouchement/sharelist/internal/database"
	"github.com/mdouchement/sharelist/internal/model"
	"github.com/mdouchement/sharelist/internal/realtime"
	"github.com/mdouchement/sharelist/internal/server"
	"github.com/stretchr/testify/assert"
)

// withRequestURI fills in Request.RequestURI, which a real HTTP server always
// sets but gofight (using http.NewRequest) leaves empty. Echo's Rewrite
// middleware matches its rules against RequestURI.
type withRequestURI struct{ h http.Handler }

func (f withRequestURI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.RequestURI == "" {
		r.RequestURI = r.URL.RequestURI()
	}
	f.h.ServeHTTP(w, r)
}

func TestRequestHome(t *testing.T) {
	engine, _, r, cleanup := setup()
	defer cleanup()

	r.GET("/").Run(withRequestURI{engine}, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
		assert.JSONEq(t, `{"version":"test"}`, r.Body.String())
	})
}

func TestRequestVersion(t *testing.T) {
	engine, _, r, cleanup := setup()
	defer cleanup()

	r.GET("/version").Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
		assert.JSONEq(t, `{"version":"test"}`, r.Body.String())
	})
}

func setup() (engine *echo.Echo, ctrl server.Controller, r *gofight.RequestConfig, cleanup func()) {
	tmpfile, err := os.CreateTemp("", "sharelist.*.db")
	if err != nil {
		panic(err)
	}
	filename := tmpfile.Name()
	tmpfile.Close()

	db, err := database.StormOpen(filename)
	if err != nil {
		panic(err)
	}

	ctrl = server.Controller{
		Version:             "test",
		Database:            db,
		Hub:                 realtime.NewHub(),
		NoRegistration:      false,
		SigningKey:          []byte("secret"),
		TokenExpirationTime: time.Hour,
	}
	engine = server.EchoEngine(ctrl)

	return engine, ctrl, gofight.New(), func() {
		db.Close()
		os.RemoveAll(filename)
	}
}

func createUser(ctrl server.Controller, email string) *model.User {
	var err error

	user := &model.User{Email: email}
	user.Password, err = argon2.GenerateFromPasswordString("password42", argon2.Default)
	if err != nil {
		panic(err)
	}
	err = ctrl.Database.Save(user)
	if err != nil {
		panic(err)
	}

	return user
}

func authHeader(ctrl server.Controller, u *model.User) gofight.H {
	return gofight.H{
		"Authorization": "Bearer " + server.TokenFromUser(ctrl, u),
	}
}

func createList(ctrl server.Controller, owner *model.User, name string) *model.List {
	list := &model.List{
		OwnerID:   owner.ID,
		Name:      name,
		ShareCode: "code-" + name,
	}
	if err := ctrl.Database.Save(list); err != nil {
		panic(err)
	}
	return list
}
