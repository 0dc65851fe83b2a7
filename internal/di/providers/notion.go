package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/readingnook/readingnook-server/internal/config"
	"github.com/readingnook/readingnook-server/internal/logger"
	"github.com/readingnook/readingnook-server/internal/notion"
)

// SchemaHandle holds the field-name schema. With a schema file configured
// it is watched and reloaded on change.
type SchemaHandle struct {
	notion.SchemaSource
	watcher *notion.SchemaWatcher
	cancel  context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SchemaHandle) Shutdown() error {
	if h.watcher == nil {
		return nil
	}
	h.cancel()
	return h.watcher.Close()
}

// ProvideSchema provides the Notion property schema.
func ProvideSchema(i do.Injector) (*SchemaHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Notion.SchemaPath == "" {
		return &SchemaHandle{SchemaSource: notion.NewStaticSchema(nil)}, nil
	}

	watcher, err := notion.NewSchemaWatcher(cfg.Notion.SchemaPath, log.Component("schema"))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go watcher.Run(ctx)

	log.Info("Watching Notion schema", "path", cfg.Notion.SchemaPath)

	return &SchemaHandle{SchemaSource: watcher, watcher: watcher, cancel: cancel}, nil
}

// ProvideNotionClient provides the Notion sync client.
func ProvideNotionClient(i do.Injector) (*notion.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	schema := do.MustInvoke[*SchemaHandle](i)

	if cfg.Notion.ProxyURL != "" {
		log.Info("Notion requests go through a relay", "proxy", cfg.Notion.ProxyURL)
	}

	return notion.NewClient(notion.Options{
		BaseURL:  cfg.Notion.BaseURL,
		ProxyURL: cfg.Notion.ProxyURL,
		PageSize: cfg.Notion.PageSize,
		Timeout:  cfg.Notion.Timeout,
	}, notion.NewMapper(schema.SchemaSource), log.Component("notion")), nil
}
