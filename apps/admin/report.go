package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/mail"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/ccnmtl/videoanalytics/core"
	"github.com/ccnmtl/videoanalytics/core/report"
)

const (
	reportTypeKey    = "key"
	reportTypeValues = "values"
)

// renderReport builds the requested report files concurrently. typ "" renders both.
func (cli *commandLine) renderReport(ctx context.Context, typ string) (key, values *bytes.Buffer, err error) {
	trees, err := cli.trees.Trees(ctx)
	if err != nil {
		return nil, nil, err
	}

	g, ctx := errgroup.WithContext(ctx)
	if typ != reportTypeValues {
		key = new(bytes.Buffer)
		g.Go(func() error {
			rows, err := cli.report.Metadata(ctx, trees)
			if err != nil {
				return errors.Wrap(err, "building report metadata")
			}
			return report.WriteCSV(key, rows)
		})
	}
	if typ != reportTypeKey {
		values = new(bytes.Buffer)
		g.Go(func() error {
			rows, err := cli.report.Values(ctx, trees)
			if err != nil {
				return errors.Wrap(err, "building report values")
			}
			return report.WriteCSV(values, rows)
		})
	}
	if err = g.Wait(); err != nil {
		return nil, nil, err
	}
	return key, values, nil
}

func (cli *commandLine) buildReport(typ, path, email string) error {
	key, values, err := cli.renderReport(context.Background(), typ)
	if err != nil {
		return err
	}

	if email != "" {
		return cli.emailReport(email, key, values)
	}

	var w io.Writer = cli.out
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "creating output file")
		}
		defer f.Close()
		w = f
	}

	switch typ {
	case reportTypeKey:
		_, err = key.WriteTo(w)
	case reportTypeValues:
		_, err = values.WriteTo(w)
	default:
		err = writeZip(w, key, values)
	}
	return errors.Wrap(err, "writing report")
}

func (cli *commandLine) emailReport(address string, key, values *bytes.Buffer) error {
	to, err := mail.ParseAddress(address)
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "email", Error: "must be a valid email address"})
	}

	msg := &core.EmailMessage{
		To:      []mail.Address{*to},
		Subject: "Research Report",
		BodyStr: fmt.Sprintf("Please find the %s report attached.", cli.conf.AppName),
	}
	for _, f := range []struct {
		name string
		buf  *bytes.Buffer
	}{{report.KeyFilename, key}, {report.ValuesFilename, values}} {
		if f.buf == nil {
			continue
		}
		if err = msg.Attach(f.buf, f.name, "text/csv"); err != nil {
			return err
		}
	}
	cli.mailSvc.SendMessages(msg)
	return nil
}

func bufferFile(name string, buf *bytes.Buffer) report.File {
	return report.File{Name: name, Write: func(w io.Writer) error {
		_, err := buf.WriteTo(w)
		return err
	}}
}

func writeZip(w io.Writer, key, values *bytes.Buffer) error {
	return report.WriteZip(w, bufferFile(report.KeyFilename, key), bufferFile(report.ValuesFilename, values))
}
