// Command tokengen 为上传接口签发 Bearer token。
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"finrag-go/internal/config"
	"finrag-go/pkg/token"
)

var (
	configPath string
	subject    string
	ttl        time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "tokengen",
	Short: "Issue a JWT for the ingestion endpoints",
	Long: `Signs an HS256 token with auth.jwt_secret from the server config.
The token is accepted by /upload, /upload_csv and /upload/async.`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "path to the server config")
	rootCmd.Flags().StringVarP(&subject, "subject", "s", "ops", "token subject")
	rootCmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is empty in %s, ingestion routes are not protected", configPath)
	}
	tok, err := token.NewJWTManager(cfg.Auth.JWTSecret).GenerateToken(subject, token.ScopeIngest, ttl)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	cmd.Println(tok)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
