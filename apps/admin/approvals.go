package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/Shyamyemuka/goldenspire-learn/core/approval"
	"github.com/Shyamyemuka/goldenspire-learn/core/session"
)

// signIn prompts for email's password and returns a context acting as the new session, along with
// a func signing it out again. It fails when the gate turned the sign-in away.
func (cli *commandLine) signIn(ctx context.Context, email string) (context.Context, func(), error) {
	pwd, err := cli.readPassword()
	if err != nil {
		return nil, nil, err
	}
	sess, _, err := cli.auth.SignIn(ctx, email, pwd)
	if err != nil {
		return nil, nil, err
	}
	signOut := func() {
		if !cli.holder.Active(sess.ID) {
			return
		}
		if err := cli.auth.SignOut(ctx, sess.ID); err != nil {
			fmt.Fprintf(cli.out, "signing out: %v\n", err)
		}
	}
	if o, ok := cli.gate.Outcome(sess.ID); !ok || !o.Admitted() {
		// denied sessions are already signed out by the gate
		signOut()
		return nil, nil, errNotAdmitted
	}
	return session.NewContext(ctx, sess.ID), signOut, nil
}

func (cli *commandLine) listApprovals(ctx context.Context, email string, filter approval.QueryFilter) error {
	ctx, signOut, err := cli.signIn(ctx, email)
	if err != nil {
		return err
	}
	defer signOut()

	if _, err = cli.approvals.Approver(ctx); err != nil {
		return err
	}
	pas, err := cli.approvals.List(ctx, filter)
	if err != nil {
		return errors.Wrap(err, "listing pending approvals")
	}
	if len(pas) == 0 {
		fmt.Fprintln(cli.out, "no pending approvals")
		return nil
	}

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tREQUESTED")
	for _, pa := range pas {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", pa.ID, pa.FullName, pa.Email, pa.RequestedRole, pa.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func (cli *commandLine) decide(ctx context.Context, email, id string, approve bool) error {
	ctx, signOut, err := cli.signIn(ctx, email)
	if err != nil {
		return err
	}
	defer signOut()

	var pa approval.PendingApproval
	verb := "approved"
	if approve {
		pa, err = cli.approvals.Approve(ctx, id)
	} else {
		verb = "rejected"
		pa, err = cli.approvals.Reject(ctx, id)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s request of %s %s\n", pa.RequestedRole, pa.Email, verb)
	return nil
}
