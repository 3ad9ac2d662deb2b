package main

import (
	"context"
	"fmt"

	"github.com/Shyamyemuka/goldenspire-learn/core/auth"
	"github.com/Shyamyemuka/goldenspire-learn/core/profile"
)

func (cli *commandLine) addUser(ctx context.Context, email, name, pwd string, role profile.Role) error {
	p, err := cli.signup.CreateApproved(ctx, auth.NewAccount{Email: email, Password: pwd, FullName: name}, role)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s account created for %s: %s\n", p.Role, p.Email, p.ID)
	return nil
}
