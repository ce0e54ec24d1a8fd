// Package db selects the database driver for a profile.
package db

import (
	"github.com/pkg/errors"

	"github.com/inspirlabs/tutorchat/internal/profile"
	"github.com/inspirlabs/tutorchat/store"
	"github.com/inspirlabs/tutorchat/store/db/postgres"
	"github.com/inspirlabs/tutorchat/store/db/sqlite"
)

// NewDBDriver creates a new database driver based on the profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "postgres":
		return postgres.NewDB(profile)
	case "sqlite":
		return sqlite.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver: %s", profile.Driver)
	}
}
