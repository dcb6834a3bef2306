// Package serverrun holds the entrypoints behind `audiolog server start`
// and `audiolog store ...`: configuration resolution, logger setup and the
// server lifecycle.
//
// Example:
//
//	cfg, err := serverrun.LoadConfig(serverrun.Options{DotenvFiles: []string{".env"}})
//	if err != nil {
//		return err
//	}
//	logger := serverrun.NewLogger(cfg.Log)
//	_ = serverrun.Run(ctx, cfg, logger)
package serverrun
