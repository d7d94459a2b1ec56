// Package app wires configuration, logging, storage and the X client into a
// ready Publisher for the command line tools.
package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mikequentel/autoshare/internal/config"
	"github.com/mikequentel/autoshare/internal/logging"
	"github.com/mikequentel/autoshare/internal/model"
	"github.com/mikequentel/autoshare/internal/publish"
	"github.com/mikequentel/autoshare/internal/store"
	"github.com/mikequentel/autoshare/internal/xapi"
)

type App struct {
	Config    *config.Config
	Log       zerolog.Logger
	Store     *store.Store
	Publisher *publish.Publisher
}

func New(ctx context.Context, configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(ctx, cfg)
}

func NewFromConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.New(cfg.Log.Level, cfg.Log.Pretty)

	st, err := store.Open(ctx, cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	var opts []xapi.Option
	if cfg.Twitter.UploadURL != "" {
		opts = append(opts, xapi.WithUploadURL(cfg.Twitter.UploadURL))
	}
	client := xapi.New(ctx, xapi.Credentials{
		ConsumerKey:    cfg.Twitter.ConsumerKey,
		ConsumerSecret: cfg.Twitter.ConsumerSecret,
		AccessToken:    cfg.Twitter.AccessToken,
		AccessSecret:   cfg.Twitter.AccessSecret,
	}, cfg.Twitter.Timeout, log, opts...)

	hooks := publish.Hooks{}
	if cfg.DryRun {
		hooks = DryRunHooks(log)
	}

	pub := publish.New(st, client, publish.Options{
		PostTypes:     cfg.Autoshare.PostTypes,
		EnableDefault: cfg.Autoshare.EnableDefault,
		MaxImageSize:  cfg.Autoshare.MaxImageSize,
		Handle:        cfg.Twitter.Handle,
		Timezone:      cfg.Autoshare.Timezone,
	}, hooks, log)

	log.Debug().Str("db", cfg.Storage.Path).Bool("dry_run", cfg.DryRun).Msg("App ready")
	return &App{Config: cfg, Log: log, Store: st, Publisher: pub}, nil
}

func (a *App) Close() error {
	return a.Store.Close()
}

// DryRunHooks stop the publisher before any network call: no media is
// uploaded and the status update is only logged.
func DryRunHooks(log zerolog.Logger) publish.Hooks {
	return publish.Hooks{
		PreMediaUpload: func(post *model.Post) (string, bool) {
			log.Info().Int64("post_id", post.ID).Msg("DRY RUN: skipping media upload")
			return "", true
		},
		PreStatusUpdate: func(u model.StatusUpdate, post *model.Post) (*model.Tweet, bool) {
			log.Info().Int64("post_id", post.ID).Str("text", u.Text).Msg("DRY RUN: would post")
			return nil, true
		},
	}
}
