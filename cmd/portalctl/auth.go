package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"delivery-portal/internal/authclient"
	"delivery-portal/internal/authz"
	"delivery-portal/internal/model"
)

func loginCmd(cfg configFunc) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("PORTAL_PASSWORD")
			}
			if email == "" || password == "" {
				return fmt.Errorf("email and password are required")
			}

			s, err := openSession(cmd.Context(), cfg())
			if err != nil {
				return err
			}
			defer s.Close()

			s.Session.Init(cmd.Context())
			user, err := s.Session.SignIn(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("%s", authclient.Message(err, "Failed to login"))
			}

			success("Signed in as %s (%s)", user.Email, user.Role)
			s.nav.Navigate(cmd.Context(), authz.HomePath(user.Role))
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (or PORTAL_PASSWORD)")
	return cmd
}

func logoutCmd(cfg configFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cfg())
			if err != nil {
				return err
			}
			defer s.Close()

			s.Session.SignOut(cmd.Context())
			success("Signed out")
			return nil
		},
	}
}

func registerCmd(cfg configFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a customer or rider account",
	}
	cmd.AddCommand(registerCustomerCmd(cfg), registerRiderCmd(cfg))
	return cmd
}

type registrationFlags struct {
	fullName string
	email    string
	password string
	role     string
}

func (f *registrationFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.fullName, "full-name", "", "full name")
	cmd.Flags().StringVarP(&f.email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "account password (or PORTAL_PASSWORD)")
	cmd.Flags().StringVar(&f.role, "role", "", "role sent with the registration")
}

func (f *registrationFlags) request() (model.RegisterCustomerRequest, error) {
	if f.password == "" {
		f.password = os.Getenv("PORTAL_PASSWORD")
	}
	if f.fullName == "" || f.email == "" || f.password == "" {
		return model.RegisterCustomerRequest{}, fmt.Errorf("full name, email and password are required")
	}
	return model.RegisterCustomerRequest{
		FullName: f.fullName,
		Email:    f.email,
		Password: f.password,
		Role:     f.role,
	}, nil
}

func registerCustomerCmd(cfg configFunc) *cobra.Command {
	var flags registrationFlags

	cmd := &cobra.Command{
		Use:   "customer",
		Short: "Register a customer account",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}

			s, err := openSession(cmd.Context(), cfg())
			if err != nil {
				return err
			}
			defer s.Close()

			user, err := s.Session.SignUpCustomer(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("%s", authclient.Message(err, "Failed to register"))
			}

			success("Registered %s as %s", user.Email, user.Role)
			info("Sign in with: portalctl login --email %s", user.Email)
			return nil
		},
	}

	flags.bind(cmd)
	return cmd
}

func registerRiderCmd(cfg configFunc) *cobra.Command {
	var (
		flags      registrationFlags
		vehicleREG string
	)

	cmd := &cobra.Command{
		Use:   "rider",
		Short: "Register a rider account",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}
			if vehicleREG == "" {
				return fmt.Errorf("vehicle registration is required")
			}

			s, err := openSession(cmd.Context(), cfg())
			if err != nil {
				return err
			}
			defer s.Close()

			user, err := s.Session.SignUpRider(cmd.Context(), model.RegisterRiderRequest{
				RegisterCustomerRequest: req,
				VehicleREG:              vehicleREG,
			})
			if err != nil {
				return fmt.Errorf("%s", authclient.Message(err, "Failed to register rider"))
			}

			success("Registered rider %s", user.Email)
			info("Sign in with: portalctl login --email %s", user.Email)
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVar(&vehicleREG, "vehicle-reg", "", "vehicle registration number")
	return cmd
}

func validateCmd(cfg configFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the stored token against the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cfg())
			if err != nil {
				return err
			}
			defer s.Close()

			if !s.Service.ValidateToken(cmd.Context()) {
				warn("No valid session")
				return nil
			}
			success("Session is valid")
			return nil
		},
	}
}
