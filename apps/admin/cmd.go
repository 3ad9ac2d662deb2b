package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/Shyamyemuka/goldenspire-learn/apps"
	"github.com/Shyamyemuka/goldenspire-learn/core/approval"
	"github.com/Shyamyemuka/goldenspire-learn/core/auth"
	"github.com/Shyamyemuka/goldenspire-learn/core/gate"
	"github.com/Shyamyemuka/goldenspire-learn/core/profile"
	"github.com/Shyamyemuka/goldenspire-learn/core/session"
	"github.com/Shyamyemuka/goldenspire-learn/core/signup"
	"github.com/Shyamyemuka/goldenspire-learn/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword      // mockable
	gooseRunFunc     = database.RunMigrations // mockable

	errHelp        = errors.New("help provided")
	errNotAdmitted = errors.New("sign-in was not admitted")
	errNoDatabase  = errors.New("migrations need a SQL database")
)

type commandLine struct {
	db        *sql.DB // nil on in-memory storage
	auth      *auth.Service
	holder    *session.Holder
	gate      *gate.Gate
	signup    *signup.Service
	approvals *approval.Service
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  adduser -email EMAIL -name NAME -role teacher|admin|master_admin - create an approved staff account")
	fmt.Fprintln(cli.out, "  approvals -email EMAIL [-role ROLE] - list pending approvals, signed in as EMAIL")
	fmt.Fprintln(cli.out, "  approve -email EMAIL -id ID - approve a pending request, signed in as EMAIL")
	fmt.Fprintln(cli.out, "  reject -email EMAIL -id ID - reject a pending request, signed in as EMAIL")
}

// navigator prints the gate's decisions on sign-in.
func (cli *commandLine) navigator() gate.Navigator {
	return gate.NavigatorFunc(func(_ context.Context, d gate.Decision) {
		if d.Outcome.Admitted() {
			fmt.Fprintf(cli.out, "signed in as %s (%s area)\n", d.Session.Email, d.Area)
			return
		}
		fmt.Fprintf(cli.out, "sign-in refused: %s\n", d.Message)
	})
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserRole := addUserCmd.String("role", string(profile.RoleTeacher), "One of teacher, admin or master_admin.")

	approvalsCmd := flag.NewFlagSet("approvals", flag.ContinueOnError)
	approvalsEmail := approvalsCmd.String("email", "", "The staff member's email. The password will be prompted next.")
	approvalsRole := approvalsCmd.String("role", "", "Only list requests for this role.")

	decideCmd := flag.NewFlagSet(args[1], flag.ContinueOnError)
	decideEmail := decideCmd.String("email", "", "The staff member's email. The password will be prompted next.")
	decideID := decideCmd.String("id", "", "The pending approval's ID.")

	for _, fs := range []*flag.FlagSet{addUserCmd, approvalsCmd, decideCmd} {
		fs.SetOutput(cli.out)
	}

	ctx := context.Background()
	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" || strings.TrimSpace(*addUserName) == "" {
			addUserCmd.Usage()
			return errHelp
		}
		role := profile.Role(*addUserRole)
		if !role.IsStaff() {
			return apps.NewArgumentError("role", fmt.Sprintf("must be one of teacher, admin or master_admin (got %q)", *addUserRole))
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(ctx, *addUserEmail, *addUserName, pwd, role)

	case "approvals":
		if err := approvalsCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *approvalsEmail == "" {
			approvalsCmd.Usage()
			return errHelp
		}
		filter := approval.QueryFilter{Role: profile.Role(*approvalsRole)}
		if filter.Role != "" && !filter.Role.Valid() {
			return apps.NewArgumentError("role", fmt.Sprintf("unknown role %q", *approvalsRole))
		}
		return cli.listApprovals(ctx, *approvalsEmail, filter)

	case "approve", "reject":
		if err := decideCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *decideEmail == "" || *decideID == "" {
			decideCmd.Usage()
			return errHelp
		}
		return cli.decide(ctx, *decideEmail, *decideID, args[1] == "approve")

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) readPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
