package service

import (
	"fmt"

	"github.com/dannmaldonado/midiacore/config"
	"github.com/dannmaldonado/midiacore/model"
	"github.com/dannmaldonado/midiacore/workflow"
)

// UserDirectory resolves usernames to tenant membership and role. It is the
// authorization collaborator behind the store's tenant checks.
type UserDirectory interface {
	Lookup(username string) (*model.Actor, error)
}

// ConfigDirectory serves the directory from the static user list in the
// configuration file.
type ConfigDirectory struct {
	cfg *config.Config
}

func NewConfigDirectory(cfg *config.Config) *ConfigDirectory {
	return &ConfigDirectory{cfg: cfg}
}

func (d *ConfigDirectory) Lookup(username string) (*model.Actor, error) {
	user := d.cfg.FindUser(username)
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", username, workflow.ErrNotFound)
	}
	return &model.Actor{
		Username: user.Username,
		Tenant:   user.Tenant,
		Role:     user.Role,
	}, nil
}
