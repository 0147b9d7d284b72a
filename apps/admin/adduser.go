package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ccnmtl/videoanalytics/core"
	"github.com/ccnmtl/videoanalytics/core/user"
)

// addUser updates or creates an active user.User. Staff users keep no research group.
func (cli *commandLine) addUser(uname, email, pwd, group string, isStaff bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	group = core.CleanString(group, true /* lower */)
	if !isStaff && !user.IsResearchGroup(group) {
		return core.NewValidationError(nil, core.FieldError{Field: "group", Error: "must be one of: a, b"})
	}

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: uname})
	created := errors.Cause(err) == user.ErrNotFound
	if err != nil && !created {
		return err
	}
	if created {
		if err = cli.usrRepo.CheckUniqueness(ctx, uname, email); err != nil {
			return err
		}
		usr = user.User{Username: uname, CreatedAt: nowFunc().UTC()}
	}

	usr.Email = email
	usr.IsStaff = isStaff
	usr.IsActive = true
	usr.UpdatedAt = nowFunc().UTC()
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}

	if created {
		usr, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		usr, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	if err != nil {
		return err
	}
	if isStaff {
		return nil
	}
	_, err = cli.usrSvc.SetResearchGroup(ctx, usr, group)
	return err
}
