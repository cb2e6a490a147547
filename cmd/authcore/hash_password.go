package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/eamcap/authcore"
	"github.com/eamcap/authcore/internal/config"
	"github.com/eamcap/authcore/password"
	"github.com/spf13/cobra"
)

// hashPasswordCmd prints a hash for seeding accounts by hand. The plaintext
// is read from stdin so it stays out of shell history.
func hashPasswordCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password read from stdin with the configured algorithm",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			hasher, err := newHasher(cfg.Password)
			if err != nil {
				return err
			}

			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password: %w", err)
			}
			plain := strings.TrimRight(line, "\r\n")
			if plain == "" {
				return errors.New("empty password")
			}

			hash, err := hasher.Hash(plain)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func newHasher(cfg config.PasswordConfig) (authcore.PasswordHasher, error) {
	switch cfg.Algorithm {
	case authcore.PasswordAlgorithmArgon2id:
		return password.NewArgon2(password.DefaultArgon2Config())
	case authcore.PasswordAlgorithmBcrypt, "":
		return password.NewBcrypt(password.BcryptConfig{Cost: cfg.BcryptCost})
	default:
		return nil, fmt.Errorf("unknown password algorithm %q", cfg.Algorithm)
	}
}
