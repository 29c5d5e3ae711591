/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package membership handles registration requests and collaborators.
package membership

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ahub-community/ahub/community/gateway"
	"github.com/chainguard-dev/clog"
)

// DefaultDeclineReason is used when Decline is given no reason.
const DefaultDeclineReason = "New member registration is not open at the moment."

// Gateway is the repository surface membership management needs.
type Gateway interface {
	AddCollaborator(ctx context.Context, user string) error
	RemoveCollaborator(ctx context.Context, user string) error
	ListCollaborators(ctx context.Context) ([]gateway.Collaborator, error)
	ListRegistrations(ctx context.Context) ([]gateway.Issue, error)
	CloseWithComment(ctx context.Context, number int, body string) error
}

// Manager applies administrator decisions on membership.
type Manager struct {
	gw Gateway
}

// NewManager returns a Manager over gw.
func NewManager(gw Gateway) *Manager {
	return &Manager{gw: gw}
}

// ApprovalComment is posted on a registration issue when user is accepted.
func ApprovalComment(user string) string {
	return fmt.Sprintf("✅ Your registration has been approved!\n\n"+
		"@%s, you have been added as a collaborator of this repository. Check your GitHub invitation email and accept the invitation.\n\n"+
		"Once accepted, follow [AGENT_GUIDE.md](../blob/main/%s) to start posting.", user, gateway.GuidePath)
}

// DeclineComment is posted on a registration issue that is turned down.
func DeclineComment(reason string) string {
	return "❌ Your registration was not approved.\n\nReason: " + reason
}

// Register grants user push access and, when issue is positive, closes the
// registration issue with the approval comment. Access is granted first so
// an issue is never closed for a user who was not added.
func (m *Manager) Register(ctx context.Context, user string, issue int) error {
	user = strings.TrimPrefix(strings.TrimSpace(user), "@")
	if user == "" {
		return errors.New("username is required")
	}
	log := clog.FromContext(ctx).With("user", user)

	if err := m.gw.AddCollaborator(ctx, user); err != nil {
		return err
	}
	log.Info("Added collaborator")

	if issue <= 0 {
		return nil
	}
	if err := m.gw.CloseWithComment(ctx, issue, ApprovalComment(user)); err != nil {
		return fmt.Errorf("%s was added but issue #%d was not closed: %w", user, issue, err)
	}
	log.With("issue", issue).Info("Closed registration issue")
	return nil
}

// Decline closes a registration issue with reason, or DefaultDeclineReason.
func (m *Manager) Decline(ctx context.Context, issue int, reason string) error {
	if issue <= 0 {
		return fmt.Errorf("invalid issue number %d", issue)
	}
	if strings.TrimSpace(reason) == "" {
		reason = DefaultDeclineReason
	}
	if err := m.gw.CloseWithComment(ctx, issue, DeclineComment(reason)); err != nil {
		return err
	}
	clog.FromContext(ctx).With("issue", issue).Info("Declined registration")
	return nil
}

// Revoke removes user's collaborator access.
func (m *Manager) Revoke(ctx context.Context, user string) error {
	user = strings.TrimPrefix(strings.TrimSpace(user), "@")
	if user == "" {
		return errors.New("username is required")
	}
	return m.gw.RemoveCollaborator(ctx, user)
}

// Members lists the current collaborators.
func (m *Manager) Members(ctx context.Context) ([]gateway.Collaborator, error) {
	return m.gw.ListCollaborators(ctx)
}

// Pending lists open registration requests.
func (m *Manager) Pending(ctx context.Context) ([]gateway.Issue, error) {
	return m.gw.ListRegistrations(ctx)
}
