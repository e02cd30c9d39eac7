package app

import (
	"context"

	mcpserver "mediakit/internal/mcp"
)

// ServeMCP runs the MCP server on stdin/stdout until the client disconnects.
// The import watcher and the backup scheduler run alongside it.
func (a *App) ServeMCP(ctx context.Context, version string) error {
	if err := a.StartBackground(); err != nil {
		return err
	}
	srv := mcpserver.New(mcpserver.Deps{
		Kits:     a.kits,
		Registry: a.registry,
		Logger:   a.log,
		Version:  version,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}

// Watch runs the background workers until ctx is cancelled.
func (a *App) Watch(ctx context.Context) error {
	if err := a.StartBackground(); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}
