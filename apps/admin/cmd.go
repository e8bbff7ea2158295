package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/shulehub/shule/core"
	"github.com/shulehub/shule/core/content"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db         *sqlx.DB
	conf       *core.Config
	contentSvc *content.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate                          - apply pending database migrations")
	fmt.Println("  list [-status STATUS]            - list content, optionally filtered by approval status")
	fmt.Println("  approve -id ID                   - approve pending content")
	fmt.Println("  reject -id ID -reason REASON     - reject pending content with a reason")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	listStatus := listCmd.String("status", "", "Filter by approval status: pending, approved or rejected.")

	approveCmd := flag.NewFlagSet("approve", flag.ExitOnError)
	approveID := approveCmd.String("id", "", "The content's ID.")

	rejectCmd := flag.NewFlagSet("reject", flag.ExitOnError)
	rejectID := rejectCmd.String("id", "", "The content's ID.")
	rejectReason := rejectCmd.String("reason", "", "Why the content is being rejected. Shown to the owner.")

	switch args[1] {
	case "migrate":
		return cli.migrate()
	case "list":
		if err := listCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.list(*listStatus)
	case "approve":
		if err := approveCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *approveID == "" {
			approveCmd.Usage()
			return errHelp
		}
		return cli.approve(*approveID)
	case "reject":
		if err := rejectCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *rejectID == "" || *rejectReason == "" {
			rejectCmd.Usage()
			return errHelp
		}
		return cli.reject(*rejectID, *rejectReason)
	default:
		cli.printUsage()
		return errHelp
	}
}
