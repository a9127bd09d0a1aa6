package main

import (
	"fmt"

	"github.com/fekuna/artista-service/internal/identity"
	idRepoPkg "github.com/fekuna/artista-service/internal/identity/repository"
	idUCPkg "github.com/fekuna/artista-service/internal/identity/usecase"
	profRepoPkg "github.com/fekuna/artista-service/internal/profile/repository"
	profUCPkg "github.com/fekuna/artista-service/internal/profile/usecase"
	"github.com/spf13/cobra"
)

var addUserFlags struct {
	email    string
	password string
	name     string
}

var addUserCmd = &cobra.Command{
	Use:   "add-user",
	Short: "Create an account with a default profile",
	Args:  cobra.NoArgs,
	RunE:  runAddUser,
}

func init() {
	addUserCmd.Flags().StringVar(&addUserFlags.email, "email", "", "account email (required)")
	addUserCmd.Flags().StringVar(&addUserFlags.password, "password", "", "account password (required)")
	addUserCmd.Flags().StringVar(&addUserFlags.name, "name", "", "display name")
	_ = addUserCmd.MarkFlagRequired("email")
	_ = addUserCmd.MarkFlagRequired("password")
}

func runAddUser(cmd *cobra.Command, args []string) error {
	d, err := connect(true)
	if err != nil {
		return err
	}
	defer d.Close()

	profUC := profUCPkg.NewProfileUseCase(profRepoPkg.NewPGRepository(d.db), d.redis, d.logger)
	uc := idUCPkg.NewIdentityUseCase(idRepoPkg.NewPGRepository(d.db), profUC, d.redis, identity.NewHub(), idUCPkg.Config{
		SecretKey: d.cfg.JWT.SecretKey,
		TokenTTL:  d.cfg.JWT.TokenTTL,
	}, d.logger)

	s, err := uc.SignUp(cmd.Context(), addUserFlags.email, addUserFlags.password, addUserFlags.name)
	if err != nil {
		return fmt.Errorf("add user: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", s.Principal.Email, s.Principal.UserID)
	return nil
}
