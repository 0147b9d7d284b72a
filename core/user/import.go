package user

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/ccnmtl/videoanalytics/core"
)

// ImportResult sums up a users import.
type ImportResult struct {
	Created int
	Updated int
	Skipped int
}

// Import creates or updates users from `username,password,research_group` CSV rows.
// Malformed rows are reported on `out` and skipped; the import goes on with the next row.
func (svc *Service) Import(ctx context.Context, r io.Reader, out io.Writer) (ImportResult, error) {
	var res ImportResult

	rdr := csv.NewReader(r)
	rdr.FieldsPerRecord = -1
	rdr.TrimLeadingSpace = true

	for line := 1; ; line++ {
		row, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.Skipped++
			_, _ = fmt.Fprintf(out, "line %d: skipped: %v\n", line, err)
			continue
		}

		uname, pwd, group, err := parseImportRow(row)
		if err != nil {
			res.Skipped++
			_, _ = fmt.Fprintf(out, "line %d: skipped: %v\n", line, err)
			continue
		}

		created, err := svc.importUser(ctx, uname, pwd, group)
		if err != nil {
			return res, errors.Wrapf(err, "importing line %d", line)
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}
	return res, nil
}

func parseImportRow(row []string) (uname, pwd, group string, err error) {
	if len(row) < 3 {
		return "", "", "", fmt.Errorf("expected 3 columns (username, password, group), got %d", len(row))
	}
	uname = core.CleanString(row[0], true /* lower */)
	pwd = row[1]
	group = core.CleanString(row[2], true /* lower */)

	switch {
	case uname == "":
		err = errors.New("missing username")
	case !alphanumUnderscoreRegex.MatchString(uname):
		err = fmt.Errorf("invalid username %q", uname)
	case pwd == "":
		err = errors.New("missing password")
	case !IsResearchGroup(group):
		err = fmt.Errorf("invalid research group %q", group)
	}
	return uname, pwd, group, err
}

func (svc *Service) importUser(ctx context.Context, uname, pwd, group string) (bool, error) {
	usr, err := svc.GetByUsername(ctx, uname)
	if err != nil && errors.Cause(err) != ErrNotFound {
		return false, errors.Wrap(err, "getting user")
	}
	created := err != nil

	now := nowFunc().UTC()
	if created {
		usr = User{Username: uname, IsActive: true, CreatedAt: now}
	}
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return false, errors.Wrap(err, "setting password")
	}

	if created {
		_, err = svc.create(ctx, usr, group)
		return true, err
	}
	if _, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return false, errors.Wrap(err, "updating user")
	}
	_, err = svc.SetResearchGroup(ctx, usr, group)
	return false, err
}
