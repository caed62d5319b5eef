package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/thecafe/internal/catalog"
	"github.com/soyeahso/thecafe/internal/config"
	"github.com/soyeahso/thecafe/internal/conversation"
	"github.com/soyeahso/thecafe/internal/domain"
	"github.com/soyeahso/thecafe/internal/entity"
	"github.com/soyeahso/thecafe/internal/hooks"
	"github.com/soyeahso/thecafe/internal/llm"
	"github.com/soyeahso/thecafe/internal/logging"
	"github.com/soyeahso/thecafe/internal/recommend"
	"github.com/soyeahso/thecafe/internal/seed"
	"github.com/soyeahso/thecafe/internal/store"
)

// app is the assembled application: the entity store and everything
// that reads from it. Commands open one, use it and close it.
type app struct {
	cfg     config.Config
	log     *logging.Logger
	db      *store.DB // nil for the memory driver
	hooks   *hooks.Manager
	store   *entity.Store
	catalog *catalog.Index
	engine  *recommend.Engine
	drafter *recommend.Drafter
	models  *llm.Registry
	chats   *conversation.Manager
}

type appOptions struct {
	topics func(context.Context, conversation.Topic)
}

// openApp loads the store (seeding it when empty) and builds the
// recommendation and chat services on top of it.
func openApp(ctx context.Context, cfg config.Config, log *logging.Logger, opts appOptions) (*app, error) {
	rt := &app{cfg: cfg, log: log, hooks: hooks.NewManager(log)}

	storeOpts := []entity.Option{entity.WithHooks(rt.hooks)}
	switch cfg.Store.Driver {
	case "memory":
		log.Info().Msg("using in-memory store")
	default:
		path := paths.StorePath(&cfg)
		db, err := store.Open(path, log)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		rt.db = db
		storeOpts = append(storeOpts, entity.WithPersister(store.NewPersister(db)))
		log.Debug().Str("path", path).Msg("using SQLite store")
	}

	rt.store = entity.New(log, storeOpts...)
	if err := rt.store.Load(ctx); err != nil {
		rt.Close()
		return nil, fmt.Errorf("loading store: %w", err)
	}
	if err := rt.seed(ctx); err != nil {
		rt.Close()
		return nil, err
	}

	rt.catalog = catalog.New(rt.store, log)
	rt.catalog.Watch(rt.hooks)
	rt.engine = recommend.NewEngine(rt.store, recommendConfig(cfg.Recommend), log)

	models, err := llm.NewRegistryFromConfig(ctx, cfg.Models, log)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.models = models
	rt.drafter = recommend.NewDrafter(models, domain.ModelID(cfg.Models.Default), log)

	chatOpts := []conversation.Option{conversation.WithHooks(rt.hooks)}
	if opts.topics != nil {
		chatOpts = append(chatOpts, conversation.WithTopicHandler(opts.topics))
	}
	rt.chats = conversation.NewManager(rt.store, models, conversation.Config{
		ReplyTimeout: time.Duration(cfg.Conversation.ReplyTimeoutSeconds) * time.Second,
		TitleLength:  cfg.Conversation.TitleLength,
		MaxTokens:    cfg.Models.MaxTokens,
	}, log, chatOpts...)

	return rt, nil
}

func (rt *app) seed(ctx context.Context) error {
	if !rt.cfg.Seed.SeedEnabled() {
		return nil
	}
	var (
		cat *seed.Catalog
		err error
	)
	if rt.cfg.Seed.File != "" {
		cat, err = seed.Load(rt.cfg.Seed.File)
	} else {
		cat, err = seed.Default()
	}
	if err != nil {
		return fmt.Errorf("loading seed catalog: %w", err)
	}
	if _, err := seed.Apply(ctx, rt.store, cat, rt.log); err != nil {
		return err
	}
	return nil
}

// Close stops reply workers and releases the database.
func (rt *app) Close() error {
	if rt.chats != nil {
		rt.chats.Close()
	}
	if rt.catalog != nil {
		rt.catalog.Unwatch(rt.hooks)
	}
	var err error
	if rt.db != nil {
		err = rt.db.Close()
	}
	return err
}

// recommendConfig copies the loaded tuning, defaults already applied, into
// the engine config.
func recommendConfig(c config.RecommendConfig) recommend.Config {
	out := recommend.DefaultConfig()
	out.Weights = recommend.Weights{
		Specialization: c.Weights.Specialization,
		Role:           c.Weights.Role,
		Domain:         c.Weights.Domain,
		Description:    c.Weights.Description,
	}
	out.MinScore = c.MinScore
	out.MaxSuggestions = c.MaxSuggestions
	out.MaxGaps = c.MaxGaps
	out.Scope = recommend.Scope(c.Scope)
	if c.MemberBonus != nil {
		out.MemberBonus = *c.MemberBonus
	}
	if c.CoverageScore != nil {
		out.CoverageScore = *c.CoverageScore
	}
	return out
}

// loadConfig reads the config file and fails on validation issues.
func loadConfig(validate func(*config.Config) []config.ValidationIssue) (config.Config, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return cfg, err
	}
	paths.Resolve(&cfg)
	if issues := validate(&cfg); len(issues) > 0 {
		errs := make([]error, 0, len(issues))
		for _, issue := range issues {
			log.Error().Str("path", issue.Path).Msg(issue.Message)
			errs = append(errs, errors.New(issue.String()))
		}
		return cfg, fmt.Errorf("config validation failed with %d issue(s): %w", len(issues), errors.Join(errs...))
	}
	return cfg, nil
}

// withApp loads config, opens the app for the duration of fn and
// closes it afterwards.
func withApp(ctx context.Context, opts appOptions, fn func(*app) error) error {
	cfg, err := loadConfig(config.Validate)
	if err != nil {
		return err
	}
	rt, err := openApp(ctx, cfg, log, opts)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}
