package main

import (
	"context"
	"time"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/user"
)

// addAdmin creates an admin account, or promotes and reactivates an
// existing one.
func (cli *commandLine) addAdmin(email, fullName, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)
	fullName = core.CleanString(fullName)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{
			Email:     email,
			FullName:  fullName,
			Role:      core.RoleAdmin,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := usr.SetPassword(pwd); err != nil {
			return err
		}
		if usr, err = cli.usrRepo.CreateIdentity(ctx, usr); err != nil {
			return err
		}
		_, err = cli.usrRepo.CreateProfile(ctx, usr)
		return err
	}

	usr.Role = core.RoleAdmin
	usr.FullName = fullName
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	active := true
	_, err = cli.usrRepo.UpdateUser(ctx, usr, &active, nil)
	return err
}
