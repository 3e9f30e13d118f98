package server

import (
	"github.com/mdouchement/sharelist/internal/model"
	"github.com/mdouchement/sharelist/internal/server/service"
)

// This file is only for test purpose and is only loaded by test framework.

// TokenFromUser returns a JWT for the given user.
func TokenFromUser(ctrl Controller, u *model.User) string {
	users := service.NewUser(ctrl.Database, ctrl.SigningKey, ctrl.TokenExpirationTime)
	token, err := users.CreateJWT(u)
	if err != nil {
		panic(err)
	}
	return token
}
