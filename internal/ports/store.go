package ports

import (
	"context"
	"time"

	"github.com/akosarev/hostflux/internal/domain"
)

// StoreSession is the time-series store's session and authorization REST
// surface. Calls that run before a token exists authenticate with the session
// cookie obtained from Signin.
type StoreSession interface {
	Ping(ctx context.Context, timeout time.Duration) error

	SetupAllowed(ctx context.Context) (bool, error)
	Setup(ctx context.Context, req domain.SetupRequest) error

	Signin(ctx context.Context, username, password string) (session string, err error)
	Signout(ctx context.Context, session string) error

	Authorizations(ctx context.Context, session string) ([]domain.Authorization, error)
	CreateAuthorization(ctx context.Context, session, orgID, description string) (domain.Authorization, error)
	DeleteAuthorization(ctx context.Context, session, id string) error

	OrganizationByName(ctx context.Context, session, name string) (domain.Organization, error)
}
