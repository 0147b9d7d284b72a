package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/ccnmtl/videoanalytics/core"
	"github.com/ccnmtl/videoanalytics/core/block"
	"github.com/ccnmtl/videoanalytics/core/pagetree"
	"github.com/ccnmtl/videoanalytics/core/report"
	"github.com/ccnmtl/videoanalytics/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	nowFunc          = time.Now          // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf    *core.Config
	db      *sql.DB
	usrRepo user.Repository
	usrSvc  *user.Service
	trees   *pagetree.Service
	blocks  *block.Service
	report  *report.Report
	mailSvc core.EmailService
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command: up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix")
	fmt.Fprintln(cli.out, "  adduser -username USERNAME -email EMAIL [-staff] [-group a|b] - create or update a user")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  importusers -csv FILE - create or update participants from username,password,group rows")
	fmt.Fprintln(cli.out, "  loadhierarchy -file FILE [-replace] - import a YAML hierarchy document")
	fmt.Fprintln(cli.out, "  dumphierarchy -name NAME [-out FILE] - export a hierarchy as a YAML document")
	fmt.Fprintln(cli.out, "  report [-type key|values] [-out FILE] [-email ADDRESS] - build the research report")
}

// promptPassword reads a password from the terminal. Empty passwords print the usage of cmd.
func (cli *commandLine) promptPassword(cmd *flag.FlagSet) (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		cmd.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserStaff := addUserCmd.Bool("staff", false, "Grant staff access.")
	addUserGroup := addUserCmd.String("group", user.ControlGroup, "The research group of the user: a or b.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	importUsersCmd := flag.NewFlagSet("importusers", flag.ExitOnError)
	importUsersFile := importUsersCmd.String("csv", "", "A CSV file of username,password,group rows.")

	loadHierarchyCmd := flag.NewFlagSet("loadhierarchy", flag.ExitOnError)
	loadHierarchyFile := loadHierarchyCmd.String("file", "", "A YAML hierarchy document.")
	loadHierarchyReplace := loadHierarchyCmd.Bool("replace", false, "Replace the hierarchy if it already exists.")

	dumpHierarchyCmd := flag.NewFlagSet("dumphierarchy", flag.ExitOnError)
	dumpHierarchyName := dumpHierarchyCmd.String("name", "", "The name of the hierarchy.")
	dumpHierarchyOut := dumpHierarchyCmd.String("out", "", "The output file. Defaults to stdout.")

	reportCmd := flag.NewFlagSet("report", flag.ExitOnError)
	reportType := reportCmd.String("type", "", "key or values. Both files are zipped when omitted.")
	reportOut := reportCmd.String("out", "", "The output file. Defaults to stdout.")
	reportEmail := reportCmd.String("email", "", "Email the report files to this address instead.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(addUserCmd)
		if err != nil {
			return err
		}
		return cli.addUser(*addUserUname, *addUserEmail, pwd, *addUserGroup, *addUserStaff)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordUname, pwd)
	case "importusers":
		if err := importUsersCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importUsersFile == "" {
			importUsersCmd.Usage()
			return errHelp
		}
		return cli.importUsers(*importUsersFile)
	case "loadhierarchy":
		if err := loadHierarchyCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loadHierarchyFile == "" {
			loadHierarchyCmd.Usage()
			return errHelp
		}
		return cli.loadHierarchy(*loadHierarchyFile, *loadHierarchyReplace)
	case "dumphierarchy":
		if err := dumpHierarchyCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *dumpHierarchyName == "" {
			dumpHierarchyCmd.Usage()
			return errHelp
		}
		return cli.dumpHierarchy(*dumpHierarchyName, *dumpHierarchyOut)
	case "report":
		if err := reportCmd.Parse(args[2:]); err != nil {
			return err
		}
		switch *reportType {
		case "", reportTypeKey, reportTypeValues:
		default:
			reportCmd.Usage()
			return errHelp
		}
		return cli.buildReport(*reportType, *reportOut, *reportEmail)
	default:
		cli.printUsage()
		return errHelp
	}
}
