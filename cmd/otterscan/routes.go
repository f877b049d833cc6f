package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vorot93/otterscan/internal/assets"
	"github.com/vorot93/otterscan/internal/routing"
)

type routeListing struct {
	Routes  []routing.Rule  `yaml:"routes"`
	Bundles []bundleListing `yaml:"bundles"`
}

type bundleListing struct {
	Name    string   `yaml:"name"`
	Entries int      `yaml:"entries"`
	Paths   []string `yaml:"paths,omitempty"`
}

func newRoutesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "routes",
		Short:  "Prints the route table and embedded bundles as YAML",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			withPaths, err := cmd.Flags().GetBool("paths")
			if err != nil {
				return fmt.Errorf("failed to get paths flag: %w", err)
			}

			app, chains, err := assets.Embedded()
			if err != nil {
				return err
			}

			listing := routeListing{Routes: routing.Rules()}
			for _, store := range []*assets.Store{app, chains} {
				bundle := bundleListing{Name: store.Name(), Entries: store.Len()}
				if withPaths {
					bundle.Paths = store.Paths()
				}
				listing.Bundles = append(listing.Bundles, bundle)
			}

			out, err := yaml.Marshal(listing)
			if err != nil {
				return fmt.Errorf("failed to marshal route table: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().Bool("paths", false, "Include every bundle path")
	return cmd
}
