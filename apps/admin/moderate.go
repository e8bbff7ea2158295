package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/shulehub/shule/core/content"
	"github.com/shulehub/shule/core/identity"
)

// cliActor is the moderating identity recorded on approved rows. Its ID is
// a fixed UUID so it satisfies the approved_by column type.
var cliActor = identity.Actor{ID: "a11ce000-0000-4000-8000-000000000001", Role: identity.RoleAdmin}

func (cli *commandLine) list(status string) error {
	ctx := context.Background()

	filter := content.QueryFilter{Status: status}
	items, total, err := cli.contentSvc.Query(ctx, cliActor, filter)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tTITLE\tOWNER\tSTATUS\tSUBMITTED")
	for _, c := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Kind, c.Title, c.OwnerID, c.Status, c.CreatedAt.Format("2006-01-02 15:04"))
	}
	if err = w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d of %d item(s)\n", len(items), total)
	return nil
}

func (cli *commandLine) approve(id string) error {
	c, err := cli.contentSvc.Approve(context.Background(), cliActor, id)
	if err != nil {
		return err
	}
	fmt.Printf("approved %q (%s)\n", c.Title, c.ID)
	return nil
}

func (cli *commandLine) reject(id, reason string) error {
	c, err := cli.contentSvc.Reject(context.Background(), cliActor, id, reason)
	if err != nil {
		return err
	}
	fmt.Printf("rejected %q (%s): %s\n", c.Title, c.ID, c.RejectionReason)
	return nil
}
