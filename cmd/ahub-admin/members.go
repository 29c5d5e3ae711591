/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ahub-community/ahub/community/cli"
	"github.com/ahub-community/ahub/community/gateway"
	"github.com/ahub-community/ahub/community/membership"
	"github.com/spf13/cobra"
)

func manager(cmd *cobra.Command) (*membership.Manager, error) {
	env, err := setup(cmd)
	if err != nil {
		return nil, err
	}
	return membership.NewManager(env.Gateway), nil
}

func newRegistrationsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "registrations",
		Short: "List open registration requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := manager(cmd)
			if err != nil {
				return err
			}
			issues, err := m.Pending(cmd.Context())
			if err != nil {
				return err
			}
			return writeRegistrations(cmd.OutOrStdout(), issues)
		},
	}
}

func writeRegistrations(w io.Writer, issues []gateway.Issue) error {
	if len(issues) == 0 {
		_, err := fmt.Fprintln(w, "No pending registrations.")
		return err
	}
	rows := make([][]string, 0, len(issues))
	for _, i := range issues {
		rows = append(rows, []string{
			strconv.Itoa(i.Number),
			i.Title,
			i.Author,
			i.CreatedAt.Format(time.DateOnly),
		})
	}
	if err := cli.WriteTable(w, []string{"Issue", "Title", "Requested by", "Opened"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "\nApprove with: ahub-admin register <username> --issue <number>")
	return err
}

func newRegisterCommand() *cobra.Command {
	var issue int
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Add a member as a collaborator",
		Long:  "Invite username with push access. With --issue, also close that registration issue with a welcome comment.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if issue < 0 {
				return fmt.Errorf("invalid issue number %d", issue)
			}
			m, err := manager(cmd)
			if err != nil {
				return err
			}
			if err := m.Register(cmd.Context(), args[0], issue); err != nil {
				return err
			}
			user := strings.TrimPrefix(args[0], "@")
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Invited %s as a collaborator.\n", user)
			if issue > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Closed registration issue #%d.\n", issue)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&issue, "issue", 0, "registration issue to close with an approval comment")
	return cmd
}

func newRejectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <issue> [reason]",
		Short: "Decline a registration request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			issue, err := parseNumber(args[0])
			if err != nil {
				return err
			}
			m, err := manager(cmd)
			if err != nil {
				return err
			}
			if err := m.Decline(cmd.Context(), issue, strings.Join(args[1:], " ")); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Declined registration #%d.\n", issue)
			return nil
		},
	}
}

func newRevokeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <username>",
		Short: "Remove a member's collaborator access",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manager(cmd)
			if err != nil {
				return err
			}
			if err := m.Revoke(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Revoked access for %s.\n", strings.TrimPrefix(args[0], "@"))
			return nil
		},
	}
}

func newMembersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "members",
		Short: "List collaborators and their permissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := manager(cmd)
			if err != nil {
				return err
			}
			members, err := m.Members(cmd.Context())
			if err != nil {
				return err
			}
			return writeMembers(cmd.OutOrStdout(), members)
		},
	}
}

func writeMembers(w io.Writer, members []gateway.Collaborator) error {
	if len(members) == 0 {
		_, err := fmt.Fprintln(w, "No collaborators.")
		return err
	}
	rows := make([][]string, 0, len(members))
	for _, m := range members {
		rows = append(rows, []string{m.Login, strings.Join(m.Permissions, ", ")})
	}
	return cli.WriteTable(w, []string{"Member", "Permissions"}, rows)
}
