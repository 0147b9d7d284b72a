package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ccnmtl/videoanalytics/core"
	"github.com/ccnmtl/videoanalytics/core/user"
)

var userColumns = []string{
	"id", "username", "email", "first_name", "last_name", "is_active", "is_staff", "is_superuser",
	"password_hash", "created_at", "updated_at", "last_login",
}

type (
	userRow struct {
		ID           int64       `db:"id"`
		Username     string      `db:"username"`
		Email        null.String `db:"email"`
		FirstName    null.String `db:"first_name"`
		LastName     null.String `db:"last_name"`
		IsActive     bool        `db:"is_active"`
		IsStaff      bool        `db:"is_staff"`
		IsSuperuser  bool        `db:"is_superuser"`
		PasswordHash null.Bytes  `db:"password_hash"`
		CreatedAt    time.Time   `db:"created_at"`
		UpdatedAt    time.Time   `db:"updated_at"`
		LastLogin    null.Time   `db:"last_login"`
	}

	profileRow struct {
		ID            int64     `db:"id"`
		UserID        int64     `db:"user_id"`
		ResearchGroup string    `db:"research_group"`
		CreatedAt     time.Time `db:"created_at"`
		ModifiedAt    time.Time `db:"modified_at"`
	}
)

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Username:     usr.Username,
		Email:        null.NewString(usr.Email, usr.Email != ""),
		FirstName:    null.NewString(usr.FirstName, usr.FirstName != ""),
		LastName:     null.NewString(usr.LastName, usr.LastName != ""),
		IsActive:     usr.IsActive,
		IsStaff:      usr.IsStaff,
		IsSuperuser:  usr.IsSuperuser,
		PasswordHash: null.NewBytes(usr.PasswordHash, usr.PasswordHash != nil),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (r userRow) user() user.User {
	return user.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email.String,
		FirstName:    r.FirstName.String,
		LastName:     r.LastName.String,
		IsActive:     r.IsActive,
		IsStaff:      r.IsStaff,
		IsSuperuser:  r.IsSuperuser,
		PasswordHash: r.PasswordHash.Bytes,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

func (r profileRow) profile() user.Profile {
	return user.Profile{
		ID:            r.ID,
		UserID:        r.UserID,
		ResearchGroup: r.ResearchGroup,
		CreatedAt:     r.CreatedAt.UTC(),
		ModifiedAt:    r.ModifiedAt.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	match := sq.Or{sq.Eq{"username": username}}
	if email != "" {
		match = append(match, sq.Eq{"email": email})
	}
	q := psql.Select("username", "email").From("users").Where(match)
	if len(excludedUsers) > 0 {
		ids := make([]int64, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		q = q.Where(sq.NotEq{"id": ids})
	}

	var rows []userRow
	if err := selectAll(ctx, repo.db, &rows, q.Limit(1)); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if len(rows) == 0 {
		return nil
	}
	if rows[0].Username == username {
		return user.ErrUsernameExists
	}
	return user.ErrEmailExists
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	r := toUserRow(usr)
	q := psql.Insert("users").
		Columns(userColumns[1:]...).
		Values(r.Username, r.Email, r.FirstName, r.LastName, r.IsActive, r.IsStaff, r.IsSuperuser,
			r.PasswordHash, r.CreatedAt, r.UpdatedAt, r.LastLogin).
		Suffix("RETURNING id")
	if err := get(ctx, repo.db, &usr.ID, q); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	q := psql.Select(userColumns...).From("users")
	switch {
	case filter.ID != 0:
		q = q.Where(sq.Eq{"id": filter.ID})
	case filter.Username != "":
		q = q.Where(sq.Eq{"username": filter.Username})
	case filter.Email != "":
		q = q.Where(sq.Eq{"email": filter.Email})
	case filter.UsernameOrEmail != "":
		q = q.Where(sq.Or{sq.Eq{"username": filter.UsernameOrEmail}, sq.Eq{"email": filter.UsernameOrEmail}})
	default:
		return user.User{}, user.ErrNotFound
	}

	var r userRow
	if err := get(ctx, repo.db, &r, q.OrderBy("id").Limit(1)); err != nil {
		return user.User{}, trapNoRows(err, user.ErrNotFound, "finding user")
	}
	return r.user(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	q := psql.Select(userColumns...).From("users")

	if filter != nil {
		// users with username, email, first or last name matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			q = q.Where(sq.Or{
				sq.ILike{"username": val},
				sq.ILike{"email": val},
				sq.ILike{"first_name": val},
				sq.ILike{"last_name": val},
			})
		}
		if filter.IsActive != nil {
			q = q.Where(sq.Eq{"is_active": *filter.IsActive})
		}
		if filter.ExcludeAdmins {
			q = q.Where(sq.Eq{"is_staff": false, "is_superuser": false})
		}
	}

	for _, ord := range ordering {
		q = q.OrderBy(ord.String())
	}

	var rows []userRow
	if err := selectAll(ctx, repo.db, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	r := toUserRow(usr)
	q := psql.Update("users").SetMap(map[string]interface{}{
		"username":      r.Username,
		"email":         r.Email,
		"first_name":    r.FirstName,
		"last_name":     r.LastName,
		"is_active":     r.IsActive,
		"is_staff":      r.IsStaff,
		"is_superuser":  r.IsSuperuser,
		"password_hash": r.PasswordHash,
		"updated_at":    r.UpdatedAt,
		"last_login":    r.LastLogin,
	}).Where(sq.Eq{"id": usr.ID})

	res, err := exec(ctx, repo.db, q)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) CreateProfile(ctx context.Context, profile user.Profile) (user.Profile, error) {
	q := psql.Insert("user_profiles").
		Columns("user_id", "research_group", "created_at", "modified_at").
		Values(profile.UserID, profile.ResearchGroup, profile.CreatedAt.UTC(), profile.ModifiedAt.UTC()).
		Suffix("RETURNING id")
	if err := get(ctx, repo.db, &profile.ID, q); err != nil {
		return user.Profile{}, errors.Wrap(err, "inserting profile")
	}
	return profile, nil
}

func (repo *userRepository) GetProfile(ctx context.Context, userID int64) (user.Profile, error) {
	q := psql.Select("id", "user_id", "research_group", "created_at", "modified_at").
		From("user_profiles").
		Where(sq.Eq{"user_id": userID})

	var r profileRow
	if err := get(ctx, repo.db, &r, q); err != nil {
		return user.Profile{}, trapNoRows(err, user.ErrProfileNotFound, "finding profile")
	}
	return r.profile(), nil
}

func (repo *userRepository) UpdateProfile(ctx context.Context, profile user.Profile) (user.Profile, error) {
	q := psql.Update("user_profiles").
		Set("research_group", profile.ResearchGroup).
		Set("modified_at", profile.ModifiedAt.UTC()).
		Where(sq.Eq{"id": profile.ID})

	res, err := exec(ctx, repo.db, q)
	if err != nil {
		return user.Profile{}, errors.Wrap(err, "updating profile")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.Profile{}, user.ErrProfileNotFound
	}
	return profile, nil
}
