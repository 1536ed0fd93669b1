// Package bootstrap wires configuration, logging, rules and storage into an
// App that imports audit logs. It keeps the cobra commands free of
// initialization logic.
//
// Usage:
//
//	app, err := bootstrap.NewApp(ctx, cfg, sugar)
//	if err != nil {
//	    return err
//	}
//	defer app.Close()
//
//	result, err := app.Import(ctx, bootstrap.ImportOptions{LogPath: path})
package bootstrap
