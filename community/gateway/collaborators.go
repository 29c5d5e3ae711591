/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package gateway

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/go-github/v75/github"
)

// AddCollaborator invites user with push permission.
func (c *Client) AddCollaborator(ctx context.Context, user string) error {
	if _, _, err := c.gh.Repositories.AddCollaborator(ctx, c.owner, c.repo, user, &github.RepositoryAddCollaboratorOptions{
		Permission: "push",
	}); err != nil {
		return fmt.Errorf("adding collaborator %s: %w", user, err)
	}
	return nil
}

// RemoveCollaborator revokes user's access.
func (c *Client) RemoveCollaborator(ctx context.Context, user string) error {
	if _, err := c.gh.Repositories.RemoveCollaborator(ctx, c.owner, c.repo, user); err != nil {
		return fmt.Errorf("removing collaborator %s: %w", user, err)
	}
	return nil
}

// ListCollaborators returns up to 100 collaborators with their granted
// permissions sorted by name.
func (c *Client) ListCollaborators(ctx context.Context) ([]Collaborator, error) {
	users, _, err := c.gh.Repositories.ListCollaborators(ctx, c.owner, c.repo, &github.ListCollaboratorsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	})
	if err != nil {
		return nil, fmt.Errorf("listing collaborators: %w", err)
	}
	out := make([]Collaborator, 0, len(users))
	for _, u := range users {
		var perms []string
		for name, granted := range u.GetPermissions() {
			if granted {
				perms = append(perms, name)
			}
		}
		slices.Sort(perms)
		out = append(out, Collaborator{Login: u.GetLogin(), Permissions: perms})
	}
	return out, nil
}
