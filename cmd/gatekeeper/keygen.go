package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/layer-3/gatekeeper/adapters/tokenizer"
	"github.com/spf13/cobra"
)

func init() {
	var (
		outDir   string
		rsaBits  int
		useECDSA bool
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a token signing key pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := generateKeys(useECDSA, rsaBits)
			if err != nil {
				return err
			}
			privatePEM, publicPEM, err := keys.MarshalPEM()
			if err != nil {
				return err
			}

			privatePath := filepath.Join(outDir, "private.pem")
			publicPath := filepath.Join(outDir, "public.pem")
			if !force {
				for _, p := range []string{privatePath, publicPath} {
					if _, err := os.Stat(p); err == nil {
						return fmt.Errorf("%s already exists, use --force to overwrite", p)
					} else if !errors.Is(err, os.ErrNotExist) {
						return err
					}
				}
			}

			if err := os.MkdirAll(outDir, 0o700); err != nil {
				return fmt.Errorf("failed to create %s: %w", outDir, err)
			}
			if err := os.WriteFile(privatePath, privatePEM, 0o600); err != nil {
				return fmt.Errorf("failed to write private key: %w", err)
			}
			if err := os.WriteFile(publicPath, publicPEM, 0o644); err != nil {
				return fmt.Errorf("failed to write public key: %w", err)
			}

			cmd.Printf("Wrote %s key pair to %s\n", keys.Method().Alg(), outDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", "keys", "Directory for private.pem and public.pem.")
	cmd.Flags().IntVar(&rsaBits, "rsa-bits", tokenizer.DefaultRSABits, "RSA key size.")
	cmd.Flags().BoolVar(&useECDSA, "ecdsa", false, "Generate an ECDSA P-256 (ES256) key instead of RSA.")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing key files.")

	rootCmd.AddCommand(cmd)
}

func generateKeys(useECDSA bool, rsaBits int) (*tokenizer.KeyPair, error) {
	if useECDSA {
		return tokenizer.GenerateKeyPair()
	}
	return tokenizer.GenerateRSAKeyPair(rsaBits)
}
