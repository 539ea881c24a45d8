package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/scarchive/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the configuration file.
//
// With --curl-file the credentials are taken from a request copied out of the
// browser's DevTools ("Copy as cURL"); otherwise the embedded example is written.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = defaultConfigPath
	}

	curlFile := cmd.String("curl-file")
	if curlFile == "" {
		r.logger.Info("creating config file from template", "path", path)
		if err := shared.CreateConfigFile(path); err != nil {
			return err
		}
	} else {
		r.logger.Info("parsing cURL command for SoundCloud credentials", "file", curlFile)
		req, err := shared.ParseCurlFile(curlFile)
		if err != nil {
			return fmt.Errorf("failed to parse cURL file: %w", err)
		}

		config := shared.DefaultConfig()
		if err := config.ApplyCurl(req); err != nil {
			return err
		}
		if err := shared.WriteConfigFile(path, config); err != nil {
			return err
		}
		r.logger.Debug("imported credentials", "client_id", config.SoundCloud.ClientID, "user_id", config.SoundCloud.UserID)
	}
	r.logger.Info("config file created", "path", path)

	r.writePlain("✓ Configuration written to %s\n", path)
	r.writePlainln("Next steps:")
	if curlFile == "" {
		r.writePlain("1. Set soundcloud.oauth_token, client_id and user_id (or %s, %s, %s in .env)\n",
			shared.EnvOAuthToken, shared.EnvClientID, shared.EnvUserID)
	} else {
		r.writePlain("1. Check soundcloud.user_id in %s\n", path)
	}
	r.writePlain("2. Run 'scarchive --week=-1' to build last week's playlist\n")
	return nil
}
