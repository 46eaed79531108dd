package main

import (
	"context"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// addUser creates a user.User with the given role.
func (cli *commandLine) addUser(name, email, pwd, role string) error {
	nu := user.NewUser{
		Name:            core.CleanString(name),
		Email:           core.CleanString(email, true /* lower */),
		Password:        pwd,
		PasswordConfirm: pwd,
		Role:            role,
	}
	if err := nu.Validate(cli.usrSvc); err != nil {
		return err
	}
	_, err := cli.usrSvc.Register(context.Background(), nu)
	return err
}
