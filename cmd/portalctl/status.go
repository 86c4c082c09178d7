package main

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"delivery-portal/internal/authclient"
	"delivery-portal/internal/authz"
)

var unauthorizedRedirectDelay = 5 * time.Second

func statusCmd(cfg configFunc) *cobra.Command {
	var validate bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show where the session is stored and who it belongs to",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, cfg())
			if err != nil {
				return err
			}
			defer s.Close()

			if validate {
				snapshot := s.Session.Init(ctx)
				info("session:     %s", snapshot.State)
			} else if token, ok, err := s.Credentials.StoredToken(ctx); err != nil {
				return err
			} else if ok {
				s.Tokens.Set(token)
			}

			mirror, err := s.Credentials.Mirror(ctx)
			if err != nil {
				return err
			}

			if mirror.StoredUser == nil {
				warn("Not signed in")
			} else {
				success("Signed in as %s (%s)", mirror.StoredUser.Email, mirror.StoredUser.Role)
			}

			info("storage:     %s", present(mirror.StorageToken))
			info("memory:      %s", present(mirror.MemoryToken))
			info("cookie:      %s", present(mirror.CookieToken))
			info("role cookie: %s", orNone(mirror.CookieRole))
			info("consistent:  %t", mirror.Consistent())

			if mirror.StorageToken != "" {
				if role, err := authz.RoleFromToken(mirror.StorageToken); err != nil {
					info("token role:  unreadable (%v)", err)
				} else {
					info("token role:  %s", role)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&validate, "validate", false, "validate the token with the backend first")
	return cmd
}

func navigateCmd(cfg configFunc) *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "navigate <path>",
		Short: "Load a portal page with the stored session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, cfg())
			if err != nil {
				return err
			}
			defer s.Close()

			v, err := s.nav.Visit(ctx, args[0])
			if err != nil {
				return err
			}
			if !v.Redirected() {
				success("%s (%d)", v.Path, v.Status)
				return nil
			}

			warn("%s redirected to %s (%d)", v.Path, v.Location, v.Status)
			if !follow {
				return nil
			}
			return followRedirect(ctx, s, v.Location)
		},
	}

	cmd.Flags().BoolVar(&follow, "follow", false, "follow the redirect the way the portal would")
	return cmd
}

// followRedirect loads the redirect target. An unauthorized page sends the
// user to their own dashboard after a short pause.
func followRedirect(ctx context.Context, s *session, location string) error {
	target := location
	if u, err := url.Parse(location); err == nil && u.Path != "" {
		target = u.Path
	}
	s.nav.Navigate(ctx, target)

	if target != "/unauthorized" {
		return nil
	}

	home := authz.HomePath(currentRole(s))
	info("redirecting to %s in %s", home, unauthorizedRedirectDelay)

	done := make(chan struct{})
	stop := authclient.ScheduleRedirect(ctx, authclient.NavigatorFunc(func(ctx context.Context, target string) {
		defer close(done)
		s.nav.Navigate(ctx, target)
	}), home, unauthorizedRedirectDelay)
	defer stop()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func currentRole(s *session) authz.Role {
	if raw, ok := s.Cookies.Get(authclient.CookieUserRole); ok {
		if role, ok := authz.ParseRole(raw); ok {
			return role
		}
	}
	if token, ok := s.Cookies.Get(authclient.CookieAccessToken); ok {
		if role, err := authz.RoleFromToken(token); err == nil {
			return role
		}
	}
	return ""
}

func present(token string) string {
	if token == "" {
		return "none"
	}
	if len(token) > 12 {
		return fmt.Sprintf("%s... (%d bytes)", token[:12], len(token))
	}
	return "set"
}

func orNone(value string) string {
	if value == "" {
		return "none"
	}
	return value
}
