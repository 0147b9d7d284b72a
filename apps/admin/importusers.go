package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
)

func (cli *commandLine) importUsers(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening csv")
	}
	defer f.Close()

	res, err := cli.usrSvc.Import(context.Background(), f, cli.out)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d created, %d updated, %d skipped\n", res.Created, res.Updated, res.Skipped)
	return nil
}
