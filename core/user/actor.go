package user

import "github.com/pkg/errors"

// Actor is a verified identity acting on a request. It is a closed type:
// Teacher and Student are the only variants, so every operation taking an
// Actor can switch over both and the compiler surfaces any future role.
// Core code never receives client-supplied ids or roles directly; an Actor
// is only built from verified token claims or a loaded User.
type Actor interface {
	ActorID() int
	isActor()
}

type Teacher struct {
	ID int
}

func (t Teacher) ActorID() int { return t.ID }
func (Teacher) isActor()       {}

type Student struct {
	ID int
}

func (s Student) ActorID() int { return s.ID }
func (Student) isActor()       {}

// ActorFor builds the Actor variant matching the given role.
func ActorFor(id int, role string) (Actor, error) {
	switch role {
	case RoleTeacher:
		return Teacher{ID: id}, nil
	case RoleStudent:
		return Student{ID: id}, nil
	}
	return nil, errors.Errorf("unknown role %q", role)
}

// Actor returns the capability variant for this user.
func (u User) Actor() (Actor, error) {
	return ActorFor(u.ID, u.Role)
}
