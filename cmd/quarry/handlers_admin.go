// handlers_admin.go implements the grant and config commands.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/quarry/internal/config"
)

func runGrant(ctx context.Context, configPath, fileName, ttlFlag string) error {
	cfg, err := loadConfig(configPath, false)
	if err != nil {
		return err
	}

	ttl := cfg.Store.GrantTTL
	if ttlFlag != "" {
		parsed, err := time.ParseDuration(ttlFlag)
		if err != nil {
			return fmt.Errorf("parse --ttl: %w", err)
		}
		ttl = parsed
	}

	a, err := buildApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	grant, err := a.store.PresignUpload(ctx, fileName, ttl)
	if err != nil {
		return fmt.Errorf("issue upload grant: %w", err)
	}

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	return out.Encode(map[string]any{"post": grant})
}

func runConfigValidate(configPath string) error {
	path := config.ResolvePath(configPath)
	if path == "" {
		return fmt.Errorf("no configuration file found (set --config or %s)", config.EnvConfigPath)
	}
	if _, err := config.Load(path); err != nil {
		return err
	}
	fmt.Printf("%s: ok\n", path)
	return nil
}

func runConfigSchema(cmd *cobra.Command) error {
	schema, err := config.JSONSchema()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(schema))
	return err
}
