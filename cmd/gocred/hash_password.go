package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/MrEthical07/goCred/password"
	"github.com/spf13/cobra"
)

// NewHashPasswordCmd creates the hash-password subcommand. It reads one
// password per line from stdin and prints an argon2id hash for each, using
// the password parameters from the loaded config.
func NewHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash passwords read from stdin",
		Long: `hash-password reads passwords from stdin, one per line, and prints the
encoded argon2id hash for each. Useful for seeding a directory by hand.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configFile, nil, os.Environ())
			if err != nil {
				return err
			}
			hasher, err := password.NewArgon2(password.Config{
				Memory:           cfg.Auth.Password.Memory,
				Time:             cfg.Auth.Password.Time,
				Parallelism:      cfg.Auth.Password.Parallelism,
				SaltLength:       cfg.Auth.Password.SaltLength,
				KeyLength:        cfg.Auth.Password.KeyLength,
				MaxPasswordBytes: cfg.Auth.Password.MaxPasswordBytes,
			})
			if err != nil {
				return err
			}
			return hashLines(cmd, hasher)
		},
	}
}

func hashLines(cmd *cobra.Command, hasher *password.Argon2) error {
	scanner := bufio.NewScanner(cmd.InOrStdin())
	hashed := 0
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		hash, err := hasher.Hash(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", hashed+1, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		hashed++
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if hashed == 0 {
		return errors.New("no password on stdin")
	}
	return nil
}
