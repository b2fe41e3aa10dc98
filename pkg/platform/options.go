package platform

import (
	"github.com/EuPathDB/WSF/pkg/answer"
	"github.com/EuPathDB/WSF/pkg/audit"
	"github.com/EuPathDB/WSF/pkg/dbms"
	"github.com/EuPathDB/WSF/pkg/model"
	"github.com/EuPathDB/WSF/pkg/wsf"
)

// Options configures the platform.
type Options struct {
	// Config is the platform configuration.
	Config *Config

	// Platform executes model SQL (optional, opened from config if not provided).
	Platform dbms.Platform

	// Model is the loaded model (optional, loaded from config if not provided).
	Model *model.Model

	// AnswerFactory persists answers (optional, created from config if not provided).
	AnswerFactory answer.Factory

	// PluginRegistry holds the WSF plugins (optional, created from config if not provided).
	PluginRegistry *wsf.Registry

	// AuditLogger records tool calls (optional, created from config when auditing is enabled).
	AuditLogger audit.Logger
}

// Option is a functional option for configuring the platform.
type Option func(*Options)

// WithConfig sets the configuration.
func WithConfig(cfg *Config) Option {
	return func(o *Options) {
		o.Config = cfg
	}
}

// WithPlatform sets the database platform.
func WithPlatform(p dbms.Platform) Option {
	return func(o *Options) {
		o.Platform = p
	}
}

// WithModel sets a model that was loaded elsewhere.
func WithModel(m *model.Model) Option {
	return func(o *Options) {
		o.Model = m
	}
}

// WithAnswerFactory sets the answer factory.
func WithAnswerFactory(f answer.Factory) Option {
	return func(o *Options) {
		o.AnswerFactory = f
	}
}

// WithPluginRegistry sets the plugin registry.
func WithPluginRegistry(r *wsf.Registry) Option {
	return func(o *Options) {
		o.PluginRegistry = r
	}
}

// WithAuditLogger sets the audit logger.
func WithAuditLogger(l audit.Logger) Option {
	return func(o *Options) {
		o.AuditLogger = l
	}
}
