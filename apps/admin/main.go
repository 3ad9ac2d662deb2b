package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Shyamyemuka/goldenspire-learn/apps/shared"
	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/gate"
)

func main() {
	if err := run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	conf := core.NewConfig()
	logger := shared.NewLogger(conf, "ADMIN : ")

	app, err := shared.NewApp(context.Background(), conf, logger, false /* migrate */)
	if err != nil {
		return err
	}
	defer app.Close()

	detach, err := app.Holder.Attach(app.Auth)
	if err != nil {
		return err
	}
	defer detach()

	cli := &commandLine{
		db:        app.DB,
		auth:      app.Auth,
		holder:    app.Holder,
		signup:    app.Signup,
		approvals: app.Approvals,
		out:       os.Stdout,
	}

	cli.gate = gate.New(app.Auth, app.Auth, app.Holder, app.Profiles, cli.navigator(), logger)
	unmount, err := cli.gate.Mount()
	if err != nil {
		return err
	}
	defer unmount()

	return cli.run(args)
}
