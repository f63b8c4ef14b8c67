package main

import (
	"context"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/user"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: core.CleanString(email, true /* lower */)})
	if err != nil {
		return err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	// an admin handed out this password; make the user pick their own
	usr.MustChangePassword = true
	if _, err := cli.usrRepo.UpdateUser(ctx, usr, nil, nil); err != nil {
		return err
	}
	return nil
}
