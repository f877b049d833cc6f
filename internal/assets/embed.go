package assets

import (
	"embed"
	"fmt"
	"io/fs"
)

// appBundle holds the compiled explorer frontend.
//
//go:embed bundle/app
var appBundle embed.FS

// chainsBundle holds the chain metadata documents fetched by the frontend.
//
//go:embed bundle/chains
var chainsBundle embed.FS

// Embedded loads both compiled-in bundles. An error here means the binary was
// built without its assets and must not start.
func Embedded() (app *Store, chains *Store, err error) {
	appFS, err := fs.Sub(appBundle, "bundle/app")
	if err != nil {
		return nil, nil, fmt.Errorf("open %s bundle: %w", BundleApp, err)
	}
	app, err = LoadApp(appFS)
	if err != nil {
		return nil, nil, err
	}

	chainsFS, err := fs.Sub(chainsBundle, "bundle/chains")
	if err != nil {
		return nil, nil, fmt.Errorf("open %s bundle: %w", BundleChains, err)
	}
	chains, err = Load(BundleChains, chainsFS)
	if err != nil {
		return nil, nil, err
	}

	return app, chains, nil
}
