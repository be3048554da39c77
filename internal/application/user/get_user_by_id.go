package user

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	domain "github.com/mohammadpnp/user-upsert/internal/domain/user"
)

var userIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[1-5][0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

type GetUserByIDInput struct {
	ID string
}

type GetUserByIDOutput struct {
	ID        string            `json:"id"`
	Username  string            `json:"username"`
	Auth      string            `json:"auth"`
	Email     string            `json:"email"`
	FirstName string            `json:"firstname"`
	LastName  string            `json:"lastname"`
	IDNumber  string            `json:"idnumber,omitempty"`
	Suspended bool              `json:"suspended"`
	Profile   map[string]string `json:"profile,omitempty"`
}

type GetUserByID interface {
	Execute(ctx context.Context, in GetUserByIDInput) (GetUserByIDOutput, error)
}

type userGetter interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type getUserByID struct {
	dir userGetter
}

func NewGetUserByID(dir userGetter) GetUserByID {
	return &getUserByID{dir: dir}
}

func (uc *getUserByID) Execute(ctx context.Context, in GetUserByIDInput) (GetUserByIDOutput, error) {
	if !userIDPattern.MatchString(in.ID) {
		return GetUserByIDOutput{}, ErrInvalidUserID
	}

	u, err := uc.dir.GetByID(ctx, in.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return GetUserByIDOutput{}, ErrUserNotFound
		}
		return GetUserByIDOutput{}, fmt.Errorf("%w: %v", ErrGetUserByID, err)
	}

	return GetUserByIDOutput{
		ID:        u.ID,
		Username:  u.Username,
		Auth:      u.Auth,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IDNumber:  u.IDNumber,
		Suspended: u.Suspended,
		Profile:   u.Profile,
	}, nil
}
