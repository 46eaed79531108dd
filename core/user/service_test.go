package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/storage/database/dummydb"
)

func newUserService(t *testing.T) *user.Service {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	return user.NewService(dummydb.NewUserRepository(db))
}

func newUserData(email string) user.NewUser {
	return user.NewUser{
		Name:            "Jina Kamili",
		Email:           email,
		Password:        "LordOfTheRings",
		PasswordConfirm: "LordOfTheRings",
		Role:            user.RoleStudent,
	}
}

// failedTags collects the validation tags that fired, keyed by field name.
func failedTags(t *testing.T, err error) map[string]string {
	t.Helper()
	var vErrs validator.ValidationErrors
	require.ErrorAs(t, err, &vErrs)
	tags := make(map[string]string, len(vErrs))
	for _, fe := range vErrs {
		tags[fe.Field()] = fe.Tag()
	}
	return tags
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)

	nu := newUserData("Hero@test.cd")
	require.NoError(t, nu.Validate(svc))

	usr, err := svc.Register(ctx, nu)
	require.NoError(t, err)
	assert.NotZero(t, usr.ID)
	assert.Equal(t, "hero@test.cd", usr.Email) // lowered
	assert.Equal(t, user.RoleStudent, usr.Role)
	assert.NotEmpty(t, usr.PasswordHash)
	assert.NoError(t, usr.CheckPassword("LordOfTheRings"))

	t.Run("email is taken", func(t *testing.T) {
		dup := newUserData("hero@test.cd")
		err := dup.Validate(svc)
		require.Error(t, err)

		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "email", vErr.Fields[0].Field)
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	})
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)

	nu := newUserData("hero@test.cd")
	require.NoError(t, nu.Validate(svc))
	_, err := svc.Register(ctx, nu)
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		usr, err := svc.Authenticate(ctx, "Hero@Test.CD", "LordOfTheRings")
		require.NoError(t, err)
		assert.Equal(t, "hero@test.cd", usr.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "hero@test.cd", "wrong")
		assert.ErrorIs(t, err, user.ErrInvalidCredentials)
	})

	t.Run("unknown account fails the same way", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "nobody@test.cd", "LordOfTheRings")
		assert.ErrorIs(t, err, user.ErrInvalidCredentials)
	})
}

func TestNewUser_Validate(t *testing.T) {
	svc := newUserService(t)

	tests := []struct {
		name    string
		mutate  func(nu *user.NewUser)
		field   string
		wantTag string
	}{
		{
			name:    "missing name",
			mutate:  func(nu *user.NewUser) { nu.Name = "" },
			field:   "name",
			wantTag: "required",
		},
		{
			name:    "bad email",
			mutate:  func(nu *user.NewUser) { nu.Email = "not-an-email" },
			field:   "email",
			wantTag: "email",
		},
		{
			name:    "bad role",
			mutate:  func(nu *user.NewUser) { nu.Role = "admin" },
			field:   "role",
			wantTag: "userrole",
		},
		{
			name: "confirmation mismatch",
			mutate: func(nu *user.NewUser) {
				nu.PasswordConfirm = "SomethingElse1"
			},
			field:   "password_confirm",
			wantTag: "eqfield",
		},
		{
			name: "password too short",
			mutate: func(nu *user.NewUser) {
				nu.Password = "short1"
				nu.PasswordConfirm = "short1"
			},
			field:   "password",
			wantTag: "pwdminlen",
		},
		{
			name: "password with whitespace",
			mutate: func(nu *user.NewUser) {
				nu.Password = "pass word 123"
				nu.PasswordConfirm = "pass word 123"
			},
			field:   "password",
			wantTag: "pwdnospace",
		},
		{
			name: "password entirely numeric",
			mutate: func(nu *user.NewUser) {
				nu.Password = "1234567890"
				nu.PasswordConfirm = "1234567890"
			},
			field:   "password",
			wantTag: "pwdnotallnum",
		},
		{
			name: "password similar to email",
			mutate: func(nu *user.NewUser) {
				nu.Password = "hero@test.cd"
				nu.PasswordConfirm = "hero@test.cd"
			},
			field:   "password",
			wantTag: "pwdtoosim",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := newUserData("hero@test.cd")
			tt.mutate(&nu)
			err := nu.Validate(svc)
			require.Error(t, err)
			tags := failedTags(t, err)
			assert.Equal(t, tt.wantTag, tags[tt.field])
		})
	}
}
